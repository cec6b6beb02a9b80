// Package ledger keeps the bounded, insertion-ordered set of item IDs that
// have already been observed, so alerts are not repeated across cycles or restarts.
package ledger

// DefaultCapacity is the number of IDs retained before FIFO eviction.
const DefaultCapacity = 100

// Ledger is a capacity-bounded ordered set of item identifiers.
// It is owned by a single scheduler and is not safe for concurrent use.
type Ledger struct {
	capacity int
	order    []string
	index    map[string]struct{}
}

// New creates an empty ledger. A non-positive capacity falls back to DefaultCapacity.
func New(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		index:    make(map[string]struct{}, capacity),
	}
}

// Capacity returns the configured bound.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// Len returns the number of IDs currently held, which may transiently
// exceed Capacity between MarkSeen and Prune.
func (l *Ledger) Len() int {
	return len(l.order)
}

// IsNew reports whether id has not been seen. Absent IDs are never new.
func (l *Ledger) IsNew(id string) bool {
	if id == "" {
		return false
	}
	_, seen := l.index[id]
	return !seen
}

// MarkSeen appends id if it is not already present. Absent IDs are ignored.
func (l *Ledger) MarkSeen(id string) {
	if !l.IsNew(id) {
		return
	}
	l.index[id] = struct{}{}
	l.order = append(l.order, id)
}

// Prune evicts the oldest-inserted IDs until the capacity bound holds and
// returns how many were evicted.
func (l *Ledger) Prune() int {
	excess := len(l.order) - l.capacity
	if excess <= 0 {
		return 0
	}
	for _, id := range l.order[:excess] {
		delete(l.index, id)
	}
	kept := make([]string, l.capacity)
	copy(kept, l.order[excess:])
	l.order = kept
	return excess
}

// Snapshot returns the IDs oldest first, suitable for persistence.
func (l *Ledger) Snapshot() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Restore replaces the contents with ids (oldest first). Blank and duplicate
// entries are dropped and the capacity bound is enforced.
func (l *Ledger) Restore(ids []string) {
	l.order = make([]string, 0, len(ids))
	l.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		l.MarkSeen(id)
	}
	l.Prune()
}
