package tracking

import (
	"sync"
	"time"
)

// Gate is a cooldown timer limiting how often one action may run. The
// broadcast and persistence gates are held independently: a single sample
// may pass both, one, or neither. Samples that miss a gate are dropped
// for that channel, never queued.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	lastFire time.Time
}

func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// ShouldFire reports whether the interval has elapsed since the last
// fire and, if so, atomically records now as the new last fire.
func (g *Gate) ShouldFire(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.lastFire.IsZero() && now.Sub(g.lastFire) < g.interval {
		return false
	}
	g.lastFire = now
	return true
}

// Reset clears the cooldown so the next sample fires immediately.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastFire = time.Time{}
}
