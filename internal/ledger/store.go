package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/profile-watcher/internal/storage"
)

// DefaultObjectName is the blob name of the persisted ledger.
const DefaultObjectName = "seen.json"

// Store persists ledger snapshots as a JSON array of strings.
type Store struct {
	blobs storage.Store
	name  string
}

// NewStore binds a ledger store to a blob backend.
func NewStore(blobs storage.Store, name string) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("ledger: blob store is required")
	}
	if name == "" {
		name = DefaultObjectName
	}
	return &Store{blobs: blobs, name: name}, nil
}

// Load returns the persisted IDs. A missing object yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]string, error) {
	data, err := s.blobs.Get(ctx, s.name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return ids, nil
}

// Save writes ids in order.
func (s *Store) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.blobs.Put(ctx, s.name, data); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
