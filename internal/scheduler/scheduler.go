// Package scheduler owns the watcher's cycle loop: fetch, extract, evaluate,
// persist and sleep, strictly one cycle at a time.
package scheduler

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/alert"
	"github.com/JakeFAU/profile-watcher/internal/identity"
	"github.com/JakeFAU/profile-watcher/internal/ledger"
	"github.com/JakeFAU/profile-watcher/internal/metrics"
	"github.com/JakeFAU/profile-watcher/internal/monitor"
)

// Default sleep bounds between cycles.
const (
	DefaultMinInterval = 30 * time.Second
	DefaultMaxInterval = 50 * time.Second
)

const (
	rowTextLimit   = 60
	alertTextLimit = 100
)

// Config controls what the scheduler watches and how often.
type Config struct {
	// SourceURL is the page fetched every cycle.
	SourceURL string
	// PermalinkBase is joined with "/status/<id>" to build item links.
	PermalinkBase string
	Profile       identity.Profile
	Marker        string
	MarkerTimeout time.Duration
	MinInterval   time.Duration
	MaxInterval   time.Duration
	// Report, when set, receives a rendered table after every fetched cycle.
	Report io.Writer
}

// Validate checks the scheduling bounds and required fields.
func (c Config) Validate() error {
	if c.SourceURL == "" {
		return errors.New("source url is required")
	}
	if c.MinInterval < time.Second {
		return fmt.Errorf("min interval must be >= 1s, got %s", c.MinInterval)
	}
	if c.MaxInterval < c.MinInterval {
		return fmt.Errorf("max interval %s is below min interval %s", c.MaxInterval, c.MinInterval)
	}
	return nil
}

// Scheduler runs watcher cycles. It is the only writer of the ledger and
// session state.
type Scheduler struct {
	fetcher      monitor.Fetcher
	extractor    monitor.Extractor
	classifier   monitor.Classifier
	dispatcher   monitor.Dispatcher
	ledger       *ledger.Ledger
	ledgerStore  monitor.LedgerStore
	sessionStore monitor.SessionStore
	clock        monitor.Clock
	ids          monitor.IDGenerator
	cfg          Config
	logger       *zap.Logger

	session     monitor.SessionState
	restoreOnce sync.Once
	seq         int64
	state       atomic.Value
	completed   atomic.Int64
}

// New constructs a Scheduler. The ledger is restored from ledgerStore on the
// first Run or explicit Restore.
func New(
	fetcher monitor.Fetcher,
	extractor monitor.Extractor,
	classifier monitor.Classifier,
	dispatcher monitor.Dispatcher,
	seen *ledger.Ledger,
	ledgerStore monitor.LedgerStore,
	sessionStore monitor.SessionStore,
	clock monitor.Clock,
	ids monitor.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) (*Scheduler, error) {
	if cfg.MinInterval == 0 && cfg.MaxInterval == 0 {
		cfg.MinInterval, cfg.MaxInterval = DefaultMinInterval, DefaultMaxInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler config: %w", err)
	}
	if fetcher == nil || extractor == nil || classifier == nil || dispatcher == nil {
		return nil, errors.New("scheduler: fetcher, extractor, classifier and dispatcher are required")
	}
	if seen == nil {
		seen = ledger.New(ledger.DefaultCapacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		fetcher:      fetcher,
		extractor:    extractor,
		classifier:   classifier,
		dispatcher:   dispatcher,
		ledger:       seen,
		ledgerStore:  ledgerStore,
		sessionStore: sessionStore,
		clock:        clock,
		ids:          ids,
		cfg:          cfg,
		logger:       logger,
	}
	s.state.Store(StateIdle)
	return s, nil
}

// State returns the current state machine position.
func (s *Scheduler) State() State {
	return s.state.Load().(State)
}

// Completed returns the number of cycles that have reached SLEEPING.
func (s *Scheduler) Completed() int64 {
	return s.completed.Load()
}

// Ready reports whether at least one cycle has finished.
func (s *Scheduler) Ready() bool {
	return s.Completed() > 0
}

func (s *Scheduler) setState(state State) {
	s.state.Store(state)
	s.logger.Debug("state transition", zap.Stringer("state", state))
}

// Restore loads the persisted ledger and session. It runs at most once; an
// unreadable ledger is logged and the watcher starts with an empty one.
func (s *Scheduler) Restore(ctx context.Context) {
	s.restoreOnce.Do(func() {
		if s.ledgerStore != nil {
			ids, err := s.ledgerStore.Load(ctx)
			if err != nil {
				s.logger.Warn("ledger unreadable; starting empty", zap.Error(err))
			}
			s.ledger.Restore(ids)
		}
		if s.sessionStore != nil {
			s.session = s.sessionStore.Load(ctx)
		}
		metrics.SetLedgerSize(s.ledger.Len())
		s.logger.Info("state restored",
			zap.Int("ledger_size", s.ledger.Len()),
			zap.Bool("session", !s.session.Empty()),
		)
	})
}

// Run executes cycles until ctx is cancelled. The delay before the next
// cycle is drawn after every cycle regardless of its outcome.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Restore(ctx)
	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopping", zap.Int64("cycles", s.Completed()))
			return nil
		}
		s.RunCycle(ctx)

		delay := s.NextDelay()
		metrics.SetNextDelay(delay)
		s.logger.Info("next cycle scheduled", zap.Duration("next_in", delay))
		if err := s.sleep(ctx, delay); err != nil {
			s.logger.Info("scheduler stopping", zap.Int64("cycles", s.Completed()))
			return nil
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.clock == nil {
		return nil
	}
	return s.clock.Sleep(ctx, d)
}

// RunCycle performs one FETCHING..SLEEPING pass and reports what happened.
// It does not sleep.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	s.Restore(ctx)
	s.seq++
	report := CycleReport{ID: s.newCycleID(), Seq: s.seq, StartedAt: s.now()}
	logger := s.logger.With(zap.String("cycle_id", report.ID), zap.Int64("cycle", report.Seq))

	defer func() {
		report.Duration = s.now().Sub(report.StartedAt)
		outcome := metrics.CycleOK
		if report.FetchErr != nil {
			outcome = metrics.CycleFetchError
		}
		metrics.ObserveCycle(outcome, report.Duration)
		if s.cfg.Report != nil && report.FetchErr == nil {
			RenderTable(s.cfg.Report, report)
		}
		s.setState(StateSleeping)
		s.completed.Add(1)
	}()

	s.setState(StateFetching)
	resp, err := s.fetcher.Fetch(ctx, monitor.FetchRequest{
		URL:           s.cfg.SourceURL,
		Profile:       s.cfg.Profile,
		Session:       s.session,
		Marker:        s.cfg.Marker,
		MarkerTimeout: s.cfg.MarkerTimeout,
	})
	if err != nil {
		report.FetchErr = err
		logger.Error("fetch failed; skipping cycle", zap.Error(err), zap.String("kind", fetchKind(err)))
		return report
	}
	report.FetchDuration = resp.Duration
	metrics.ObserveFetchDuration(resp.Duration)

	s.setState(StateExtracting)
	items := s.extractor.Extract(resp.Body)

	s.setState(StateEvaluating)
	s.evaluate(ctx, logger, items, &report)

	s.setState(StatePersisting)
	s.persist(ctx, logger, resp.Session, &report)

	logger.Info("cycle complete",
		zap.Int("items", len(report.Items)),
		zap.Int("new", report.NewItems),
		zap.Int("alerts", report.Alerts),
		zap.Int("alert_failures", report.AlertFails),
		zap.Int("ledger_size", s.ledger.Len()),
		zap.Duration("fetch_duration", report.FetchDuration),
		zap.Duration("duration", s.now().Sub(report.StartedAt)),
	)
	return report
}

// evaluate runs dedup, classify, mark-seen and dispatch for each item in order.
func (s *Scheduler) evaluate(ctx context.Context, logger *zap.Logger, items []monitor.Item, report *CycleReport) {
	record := alert.NewRecord()
	for idx, item := range items {
		row := ItemReport{Index: idx + 1, ID: item.ID, Text: item.Text}
		isNew := s.ledger.IsNew(item.ID)
		switch {
		case !item.HasID():
			row.State = metrics.ItemNoID
		case isNew:
			row.State = metrics.ItemNew
		default:
			row.State = metrics.ItemSeen
		}
		metrics.ObserveItem(row.State)

		row.Match = s.classifier.Matches(item.Text)
		if isNew {
			s.ledger.MarkSeen(item.ID)
			report.NewItems++
		}
		if item.HasID() {
			row.Permalink = s.permalink(item.ID)
		}

		// Repeats within one cycle are caught by the record, not the ledger.
		if row.Match && (isNew || record.Sent(item.ID)) {
			if record.MarkIfNew(item.ID) {
				s.dispatch(ctx, logger, &row, report)
			} else {
				row.Duplicate = true
				metrics.ObserveAlert(metrics.AlertDuplicate)
			}
		}

		logger.Info("item",
			zap.Int("index", row.Index),
			zap.String("item_id", row.ID),
			zap.String("status", row.State),
			zap.Bool("match", row.Match),
			zap.String("text", truncate(row.Text, rowTextLimit)),
		)
		report.Items = append(report.Items, row)
	}

	for _, row := range report.AlertedItems() {
		logger.Warn("keyword alert",
			zap.String("permalink", row.Permalink),
			zap.String("text", truncate(row.Text, alertTextLimit)),
		)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, logger *zap.Logger, row *ItemReport, report *CycleReport) {
	if err := s.dispatcher.Dispatch(ctx, row.Text, row.Permalink); err != nil {
		row.AlertErr = err
		report.AlertFails++
		logger.Error("alert delivery failed", zap.String("item_id", row.ID), zap.Error(err))
		return
	}
	row.Alerted = true
	report.Alerts++
}

// persist prunes the ledger, then writes it and the captured session.
// Failures are logged and never roll back in-memory state.
func (s *Scheduler) persist(ctx context.Context, logger *zap.Logger, captured monitor.SessionState, report *CycleReport) {
	report.Evicted = s.ledger.Prune()
	metrics.SetLedgerSize(s.ledger.Len())
	if report.Evicted > 0 {
		logger.Debug("ledger pruned", zap.Int("evicted", report.Evicted))
	}

	if s.ledgerStore != nil {
		if err := s.ledgerStore.Save(ctx, s.ledger.Snapshot()); err != nil {
			report.LedgerErr = &monitor.PersistError{Target: "ledger", Err: err}
			metrics.ObservePersistFailure("ledger")
			logger.Error("ledger save failed", zap.Error(report.LedgerErr))
		}
	}

	if captured.Empty() {
		return
	}
	s.session = captured
	if s.sessionStore != nil {
		if err := s.sessionStore.Save(ctx, captured); err != nil {
			report.SessionErr = err
			metrics.ObservePersistFailure("session")
			logger.Error("session save failed", zap.Error(err))
		}
	}
}

// NextDelay draws a uniformly random whole-second delay in
// [MinInterval, MaxInterval], both ends inclusive.
func (s *Scheduler) NextDelay() time.Duration {
	return jitter(s.cfg.MinInterval, s.cfg.MaxInterval)
}

func jitter(lo, hi time.Duration) time.Duration {
	loSec := int64((lo + time.Second - 1) / time.Second)
	hiSec := int64(hi / time.Second)
	if hiSec <= loSec {
		return time.Duration(loSec) * time.Second
	}
	n, err := rand.Int(rand.Reader, big.NewInt(hiSec-loSec+1))
	if err != nil {
		return time.Duration(loSec+(hiSec-loSec)/2) * time.Second
	}
	return time.Duration(loSec+n.Int64()) * time.Second
}

func (s *Scheduler) permalink(id string) string {
	base := strings.TrimRight(s.cfg.PermalinkBase, "/")
	if base == "" {
		base = strings.TrimRight(s.cfg.SourceURL, "/")
	}
	return base + "/status/" + id
}

func (s *Scheduler) newCycleID() string {
	if s.ids == nil {
		return fmt.Sprintf("cycle-%d", s.seq)
	}
	id, err := s.ids.NewID()
	if err != nil {
		s.logger.Warn("cycle id generation failed", zap.Error(err))
		return fmt.Sprintf("cycle-%d", s.seq)
	}
	return id
}

func (s *Scheduler) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func fetchKind(err error) string {
	var fetchErr *monitor.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Kind)
	}
	return "unknown"
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
