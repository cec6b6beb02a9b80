// Package session persists the browser's authentication cookies across
// process restarts so the watcher does not need to sign in on every run.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/profile-watcher/internal/monitor"
	"github.com/JakeFAU/profile-watcher/internal/storage"
)

// DefaultObjectName is the blob name of the persisted cookie jar.
const DefaultObjectName = "cookies.json"

// Store implements monitor.SessionStore over a blob backend.
type Store struct {
	blobs  storage.Store
	name   string
	logger *zap.Logger
}

// NewStore binds a session store to a blob backend.
func NewStore(blobs storage.Store, name string, logger *zap.Logger) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("session: blob store is required")
	}
	if name == "" {
		name = DefaultObjectName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{blobs: blobs, name: name, logger: logger}, nil
}

// Load returns the persisted session. It never fails: a missing or
// unreadable object yields an empty state.
func (s *Store) Load(ctx context.Context) monitor.SessionState {
	data, err := s.blobs.Get(ctx, s.name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Debug("no persisted session", zap.String("object", s.name))
		return nil
	case err != nil:
		s.logger.Warn("session unreadable; starting fresh", zap.String("object", s.name), zap.Error(err))
		return nil
	}
	return monitor.SessionState(data)
}

// Save overwrites the persisted session byte-for-byte.
func (s *Store) Save(ctx context.Context, state monitor.SessionState) error {
	if err := s.blobs.Put(ctx, s.name, state); err != nil {
		return &monitor.PersistError{Target: "session", Err: err}
	}
	return nil
}
