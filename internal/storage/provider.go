// Package storage defines the blob interface used to persist watcher state
// (the dedup ledger and the browser session). This keeps the scheduler
// independent of whether state lives on local disk or in a GCS bucket.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the named object does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes whole named objects.
type Store interface {
	// Get returns the object's bytes or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put replaces the object's bytes.
	Put(ctx context.Context, name string, data []byte) error
}
