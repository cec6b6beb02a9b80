// Package metrics exposes Prometheus collectors for the watcher.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared with callers.
const (
	CycleOK         = "ok"
	CycleFetchError = "fetch_error"

	ItemNew  = "new"
	ItemSeen = "seen"
	ItemNoID = "no_id"

	AlertSent         = "sent"
	AlertFailed       = "failed"
	AlertUnconfigured = "unconfigured"
	AlertDuplicate    = "duplicate"
)

var (
	watcherCyclesTotal          *prometheus.CounterVec
	watcherItemsTotal           *prometheus.CounterVec
	watcherAlertsTotal          *prometheus.CounterVec
	watcherPersistFailuresTotal *prometheus.CounterVec
	watcherFetchDurationSeconds prometheus.Histogram
	watcherCycleDurationSeconds prometheus.Histogram
	watcherLedgerSize           prometheus.Gauge
	watcherNextDelaySeconds     prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		watcherCyclesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_cycles_total",
				Help: "Total number of watch cycles, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		watcherItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_items_total",
				Help: "Total number of extracted items, labeled by dedup state.",
			},
			[]string{"state"},
		)

		watcherAlertsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_alerts_total",
				Help: "Total number of alert dispatch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		watcherPersistFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watcher_persist_failures_total",
				Help: "Total number of failed state writes, labeled by target.",
			},
			[]string{"target"},
		)

		watcherFetchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watcher_fetch_duration_seconds",
				Help:    "Histogram of headless page fetch latencies.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 90},
			},
		)

		watcherCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watcher_cycle_duration_seconds",
				Help:    "Histogram of whole-cycle durations excluding the sleep.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 90, 120},
			},
		)

		watcherLedgerSize = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_ledger_size",
				Help: "Number of item IDs currently held by the dedup ledger.",
			},
		)

		watcherNextDelaySeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "watcher_next_delay_seconds",
				Help: "Delay drawn before the next cycle.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveCycle counts a finished cycle and its duration.
func ObserveCycle(outcome string, duration time.Duration) {
	Init()
	watcherCyclesTotal.WithLabelValues(outcome).Inc()
	watcherCycleDurationSeconds.Observe(duration.Seconds())
}

// ObserveFetchDuration records one headless fetch latency.
func ObserveFetchDuration(duration time.Duration) {
	Init()
	watcherFetchDurationSeconds.Observe(duration.Seconds())
}

// ObserveItem counts one extracted item by dedup state.
func ObserveItem(state string) {
	Init()
	watcherItemsTotal.WithLabelValues(state).Inc()
}

// ObserveAlert counts one dispatch attempt by outcome.
func ObserveAlert(outcome string) {
	Init()
	watcherAlertsTotal.WithLabelValues(outcome).Inc()
}

// ObservePersistFailure counts a failed write of target ("ledger" or "session").
func ObservePersistFailure(target string) {
	Init()
	watcherPersistFailuresTotal.WithLabelValues(target).Inc()
}

// SetLedgerSize records the ledger size after pruning.
func SetLedgerSize(n int) {
	Init()
	watcherLedgerSize.Set(float64(n))
}

// SetNextDelay records the sleep drawn after a cycle.
func SetNextDelay(d time.Duration) {
	Init()
	watcherNextDelaySeconds.Set(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
