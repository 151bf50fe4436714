// Package debounce gates how often the same identity may trigger a
// reconciliation attempt.
package debounce

import "time"

// Tracker maps identity → last accepted event time. It is plain process
// state: constructed at startup, discarded at shutdown, and owned by the
// single goroutine that runs reconciliation. Entries are lost on restart,
// which is accepted staleness (the worst case is one extra attempt).
type Tracker struct {
	cooldown time.Duration
	last     map[string]time.Time
}

// NewTracker creates a tracker with the given cooldown window.
func NewTracker(cooldown time.Duration) *Tracker {
	return &Tracker{
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// ShouldAccept reports whether an event for identity at now is outside
// the cooldown window. It has no side effects; call Record once the
// reconciliation attempt completes.
func (t *Tracker) ShouldAccept(identity string, now time.Time) bool {
	at, ok := t.last[identity]
	if !ok {
		return true
	}
	return now.Sub(at) >= t.cooldown
}

// Record sets or overwrites the last accepted time for identity.
func (t *Tracker) Record(identity string, now time.Time) {
	t.last[identity] = now
}
