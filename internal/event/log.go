package event

// DefaultCapacity is the standard event log capacity.
const DefaultCapacity = 1000

// Log is a bounded, ordered buffer of events.
//
// Appending beyond capacity evicts the oldest entries, preserving the
// relative order of survivors. The zero capacity is invalid; use NewLog.
//
// Log is not safe for concurrent use: it must only be touched from the
// engine's single-writer goroutine.
type Log struct {
	capacity int
	entries  []Event
}

// NewLog creates an empty log with the given capacity.
// Capacities below 1 fall back to DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		entries:  make([]Event, 0, capacity),
	}
}

// Append adds an event to the end of the log, evicting the oldest
// entries if the log would exceed its capacity.
func (l *Log) Append(e Event) {
	l.entries = append(l.entries, e)
	if excess := len(l.entries) - l.capacity; excess > 0 {
		// Shift survivors down rather than re-slicing so the backing
		// array does not pin evicted entries or grow without bound.
		n := copy(l.entries, l.entries[excess:])
		l.entries = l.entries[:n]
	}
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of retained events.
func (l *Log) Capacity() int {
	return l.capacity
}

// Snapshot returns a copy of the retained events, oldest first.
// The copy is safe to hand across goroutine boundaries.
func (l *Log) Snapshot() []Event {
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
