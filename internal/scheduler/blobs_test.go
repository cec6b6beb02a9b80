package scheduler

import (
	"context"
	"sync"

	"github.com/JakeFAU/profile-watcher/internal/storage/memory"
)

// faultyBlobs wraps the in-memory store with write counting and injected
// Put failures.
type faultyBlobs struct {
	*memory.BlobStore

	mu     sync.Mutex
	writes int
	putErr error
}

func newFaultyBlobs() *faultyBlobs {
	return &faultyBlobs{BlobStore: memory.NewBlobStore()}
}

func (b *faultyBlobs) Put(ctx context.Context, name string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		return b.putErr
	}
	if err := b.BlobStore.Put(ctx, name, data); err != nil {
		return err
	}
	b.writes++
	return nil
}

// FailPuts makes every subsequent Put return err; nil restores normal writes.
func (b *faultyBlobs) FailPuts(err error) {
	b.mu.Lock()
	b.putErr = err
	b.mu.Unlock()
}

func (b *faultyBlobs) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
