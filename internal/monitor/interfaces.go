package monitor

import (
	"context"
	"time"
)

// Fetcher loads a page with the given identity and returns its rendered DOM.
// Implementations must not retry; the scheduler owns retry cadence.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns rendered content into at most a bounded number of items,
// most recent first. It never fails on malformed units.
type Extractor interface {
	Extract(body []byte) []Item
}

// Dispatcher delivers one notification for an alert-worthy item.
type Dispatcher interface {
	Dispatch(ctx context.Context, text, permalink string) error
}

// SessionStore persists the browser session between process restarts.
type SessionStore interface {
	Load(ctx context.Context) SessionState
	Save(ctx context.Context, state SessionState) error
}

// LedgerStore persists the dedup ledger snapshot.
type LedgerStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

// Clock returns the current time and sleeps (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces cycle correlation IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Classifier decides whether an item's text is alert-worthy.
type Classifier interface {
	Matches(text string) bool
}
