// Package guard implements the dedup/cooldown admission control that
// decides whether a detected item counts as a new disposal. Its decision is
// the single source of truth for "is this a new item"; the actuator and the
// event store only run when the guard admits.
package guard

import (
	"sync"
	"time"
)

// Guard admits at most one trigger per cooldown window. The admission check
// and the timestamp update happen in one critical section, so two
// concurrent calls can never both admit off the same stale timestamp.
type Guard struct {
	mu       sync.Mutex
	cooldown time.Duration
	perLabel bool

	lastAdmit time.Time
	lastLabel string
}

// New creates a Guard with the given cooldown. The cooldown is a tunable,
// not a constant; callers take it from configuration.
//
// With perLabel set, a candidate whose label differs from the last admitted
// one is admitted even inside the cooldown window. The default (false)
// applies the cooldown globally, which is the safe choice when a single
// actuator needs time to complete its cycle.
func New(cooldown time.Duration, perLabel bool) *Guard {
	return &Guard{cooldown: cooldown, perLabel: perLabel}
}

// Admit reports whether a candidate disposal at time now is new enough to
// act on, and records the admission atomically with the decision.
func (g *Guard) Admit(label string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	elapsed := now.Sub(g.lastAdmit)
	fresh := g.lastAdmit.IsZero() || elapsed >= g.cooldown

	if !fresh && g.perLabel && label != g.lastLabel {
		fresh = true
	}
	if !fresh {
		return false
	}

	g.lastAdmit = now
	g.lastLabel = label
	return true
}

// LastAdmitted returns the timestamp and label of the most recent
// admission. The zero time means nothing has been admitted yet.
func (g *Guard) LastAdmitted() (time.Time, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastAdmit, g.lastLabel
}
