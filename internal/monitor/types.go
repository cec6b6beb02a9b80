// Package monitor defines the types and narrow interfaces shared by the
// watcher pipeline: fetch, extract, dedup, classify, alert and persist.
package monitor

import (
	"time"

	"github.com/JakeFAU/profile-watcher/internal/identity"
)

// Item is one content unit extracted from the source page.
// An empty ID means the extractor could not locate a stable identifier;
// such items are never recorded in the ledger and never alerted.
type Item struct {
	ID   string
	Text string
}

// HasID reports whether the item carries a stable source identifier.
func (i Item) HasID() bool {
	return i.ID != ""
}

// SessionState is the opaque cookie blob persisted between runs.
// It is round-tripped byte-for-byte; a nil state means "no session".
type SessionState []byte

// Empty reports whether there is nothing to restore.
func (s SessionState) Empty() bool {
	return len(s) == 0
}

// FetchRequest captures everything a Fetcher needs for one page load.
type FetchRequest struct {
	URL     string
	Profile identity.Profile
	// Session is restored into the browser before navigation.
	Session SessionState
	// Marker is the CSS selector that must appear before the page counts as rendered.
	Marker        string
	MarkerTimeout time.Duration
}

// FetchResponse is the rendered page plus the session captured after it loaded.
type FetchResponse struct {
	URL      string
	Body     []byte
	Session  SessionState
	Duration time.Duration
}
