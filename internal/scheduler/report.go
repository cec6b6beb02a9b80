package scheduler

import (
	"time"

	"github.com/JakeFAU/profile-watcher/internal/metrics"
)

// ItemReport describes how one extracted item was handled.
type ItemReport struct {
	Index int
	ID    string
	// State is metrics.ItemNew, metrics.ItemSeen or metrics.ItemNoID.
	State     string
	Match     bool
	Alerted   bool
	// Duplicate marks a repeat of an ID already dispatched this cycle.
	Duplicate bool
	Permalink string
	Text      string
	AlertErr  error
}

// New reports whether the item was unseen. Items without an ID count as new
// for display only.
func (r ItemReport) New() bool {
	return r.State != metrics.ItemSeen
}

// CycleReport summarizes one pass through the state machine.
type CycleReport struct {
	ID            string
	Seq           int64
	StartedAt     time.Time
	Duration      time.Duration
	FetchDuration time.Duration
	// FetchErr is set when the cycle was abandoned before extraction.
	FetchErr   error
	Items      []ItemReport
	NewItems   int
	Alerts     int
	AlertFails int
	Evicted    int
	LedgerErr  error
	SessionErr error
}

// OK reports whether the fetch succeeded.
func (r CycleReport) OK() bool {
	return r.FetchErr == nil
}

// AlertedItems returns the items that were dispatched in this cycle.
func (r CycleReport) AlertedItems() []ItemReport {
	var out []ItemReport
	for _, item := range r.Items {
		if item.Alerted {
			out = append(out, item)
		}
	}
	return out
}
