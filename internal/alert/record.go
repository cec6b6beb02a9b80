package alert

// Record tracks which item IDs have been dispatched in the current cycle.
// A fresh Record is created per cycle; it is never persisted.
type Record struct {
	sent map[string]struct{}
}

// NewRecord creates an empty per-cycle record.
func NewRecord() *Record {
	return &Record{sent: make(map[string]struct{})}
}

// MarkIfNew records id and reports whether it had not been dispatched yet.
// Absent IDs are never dispatchable.
func (r *Record) MarkIfNew(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := r.sent[id]; ok {
		return false
	}
	r.sent[id] = struct{}{}
	return true
}

// Sent reports whether id was already dispatched in this cycle.
func (r *Record) Sent(id string) bool {
	_, ok := r.sent[id]
	return ok
}

// Len returns the number of dispatched IDs.
func (r *Record) Len() int {
	return len(r.sent)
}
