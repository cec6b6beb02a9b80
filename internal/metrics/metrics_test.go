package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := watcherCyclesTotal
	Init()

	if watcherCyclesTotal == nil || watcherCyclesTotal != first {
		t.Fatal("Init() did not keep a single set of collectors")
	}
}

func TestObserveCycle(t *testing.T) {
	Init()
	before := testutil.ToFloat64(watcherCyclesTotal.WithLabelValues(CycleFetchError))
	ObserveCycle(CycleFetchError, 2*time.Second)
	after := testutil.ToFloat64(watcherCyclesTotal.WithLabelValues(CycleFetchError))
	if after-before != 1 {
		t.Errorf("expected fetch_error cycles to grow by 1, got %f", after-before)
	}
	if n := testutil.CollectAndCount(watcherCycleDurationSeconds); n != 1 {
		t.Errorf("expected cycle duration histogram to be collected, got %d", n)
	}
}

func TestObserveItemsAndAlerts(t *testing.T) {
	Init()
	newBefore := testutil.ToFloat64(watcherItemsTotal.WithLabelValues(ItemNew))
	sentBefore := testutil.ToFloat64(watcherAlertsTotal.WithLabelValues(AlertSent))

	ObserveItem(ItemNew)
	ObserveItem(ItemNew)
	ObserveAlert(AlertSent)

	if got := testutil.ToFloat64(watcherItemsTotal.WithLabelValues(ItemNew)) - newBefore; got != 2 {
		t.Errorf("expected 2 new items, got %f", got)
	}
	if got := testutil.ToFloat64(watcherAlertsTotal.WithLabelValues(AlertSent)) - sentBefore; got != 1 {
		t.Errorf("expected 1 sent alert, got %f", got)
	}
}

func TestGauges(t *testing.T) {
	SetLedgerSize(42)
	SetNextDelay(37 * time.Second)
	ObservePersistFailure("ledger")
	ObserveFetchDuration(time.Second)

	if v := testutil.ToFloat64(watcherLedgerSize); v != 42 {
		t.Errorf("expected ledger size 42, got %f", v)
	}
	if v := testutil.ToFloat64(watcherNextDelaySeconds); v != 37 {
		t.Errorf("expected next delay 37, got %f", v)
	}
	if v := testutil.ToFloat64(watcherPersistFailuresTotal.WithLabelValues("ledger")); v < 1 {
		t.Errorf("expected a ledger persist failure, got %f", v)
	}
}
