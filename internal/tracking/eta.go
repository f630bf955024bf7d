package tracking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/geocode"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

// Directions computes a route estimate towards a destination. Satisfied
// by *geocode.Client.
type Directions interface {
	ETA(ctx context.Context, origin, dest geo.Point) (geocode.RouteEstimate, error)
}

// Estimator debounces ETA requests per sample burst and applies results
// last-request-wins: a slow in-flight response never overwrites the
// result of a request issued after it. On failure the prior estimate
// stays in place.
type Estimator struct {
	directions Directions
	debounce   time.Duration
	onUpdate   func(geocode.RouteEstimate)

	mu      sync.Mutex
	timer   *time.Timer
	pending struct {
		origin, dest geo.Point
	}
	gen     uint64
	current *geocode.RouteEstimate
}

func NewEstimator(directions Directions, debounce time.Duration, onUpdate func(geocode.RouteEstimate)) *Estimator {
	return &Estimator{directions: directions, debounce: debounce, onUpdate: onUpdate}
}

// Schedule queues a recomputation towards dest. A burst of samples
// within the debounce window collapses into one request.
func (e *Estimator) Schedule(origin, dest geo.Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending.origin = origin
	e.pending.dest = dest
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.issue)
}

func (e *Estimator) issue() {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	origin := e.pending.origin
	dest := e.pending.dest
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	estimate, err := e.directions.ETA(ctx, origin, dest)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen {
		// a fresher request has been issued since
		return
	}
	if err != nil {
		log.Printf("tracking: eta fetch failed: %v", err)
		return
	}
	e.current = &estimate
	if e.onUpdate != nil {
		e.onUpdate(estimate)
	}
}

// Clear cancels any pending request and drops the estimate; used when
// the booking leaves the ETA-relevant statuses.
func (e *Estimator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.current = nil
}

// Current returns the latest estimate, nil when none.
func (e *Estimator) Current() *geocode.RouteEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}
