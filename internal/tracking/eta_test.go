package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/geocode"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

type fakeDirections struct {
	mu    sync.Mutex
	calls int
	est   geocode.RouteEstimate
	err   error
	// hold, when set, blocks the first call until closed
	hold chan struct{}
}

func (d *fakeDirections) ETA(_ context.Context, _, _ geo.Point) (geocode.RouteEstimate, error) {
	d.mu.Lock()
	n := d.calls
	d.calls++
	est, err := d.est, d.err
	hold := d.hold
	d.mu.Unlock()

	if n == 0 && hold != nil {
		<-hold
	}
	return est, err
}

func (d *fakeDirections) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDirections) set(est geocode.RouteEstimate, err error) {
	d.mu.Lock()
	d.est, d.err = est, err
	d.mu.Unlock()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestEstimatorDebouncesBursts(t *testing.T) {
	dir := &fakeDirections{est: geocode.RouteEstimate{DurationSeconds: 540, DistanceMeters: 4200}}
	e := NewEstimator(dir, 30*time.Millisecond, nil)

	origin := geo.Point{Lat: 12.97, Lng: 77.59}
	dest := geo.Point{Lat: 12.98, Lng: 77.60}
	for i := 0; i < 5; i++ {
		e.Schedule(origin, dest)
	}

	waitFor(t, func() bool { return e.Current() != nil })
	if got := dir.callCount(); got != 1 {
		t.Fatalf("a burst should collapse into one request, got %d", got)
	}
	if est := e.Current(); est.DurationSeconds != 540 {
		t.Fatalf("unexpected estimate %+v", est)
	}
}

func TestEstimatorLastRequestWins(t *testing.T) {
	dir := &fakeDirections{hold: make(chan struct{})}
	dir.set(geocode.RouteEstimate{DurationSeconds: 900}, nil)
	e := NewEstimator(dir, 10*time.Millisecond, nil)

	origin := geo.Point{Lat: 12.97, Lng: 77.59}
	dest := geo.Point{Lat: 12.98, Lng: 77.60}

	// first request goes out and stalls
	e.Schedule(origin, dest)
	waitFor(t, func() bool { return dir.callCount() == 1 })

	// second request issued while the first is in flight
	dir.set(geocode.RouteEstimate{DurationSeconds: 300}, nil)
	e.Schedule(origin, dest)
	waitFor(t, func() bool {
		est := e.Current()
		return est != nil && est.DurationSeconds == 300
	})

	// the stale response lands late and must not overwrite
	close(dir.hold)
	time.Sleep(50 * time.Millisecond)
	if est := e.Current(); est == nil || est.DurationSeconds != 300 {
		t.Fatalf("stale response overwrote the fresh estimate: %+v", est)
	}
}

func TestEstimatorKeepsPriorOnFailure(t *testing.T) {
	dir := &fakeDirections{est: geocode.RouteEstimate{DurationSeconds: 600}}
	e := NewEstimator(dir, 10*time.Millisecond, nil)

	origin := geo.Point{Lat: 12.97, Lng: 77.59}
	dest := geo.Point{Lat: 12.98, Lng: 77.60}

	e.Schedule(origin, dest)
	waitFor(t, func() bool { return e.Current() != nil })

	dir.set(geocode.RouteEstimate{}, errors.New("routing upstream down"))
	e.Schedule(origin, dest)
	waitFor(t, func() bool { return dir.callCount() >= 2 })
	time.Sleep(20 * time.Millisecond)

	if est := e.Current(); est == nil || est.DurationSeconds != 600 {
		t.Fatalf("failure should keep the prior estimate, got %+v", est)
	}
}

func TestEstimatorClear(t *testing.T) {
	dir := &fakeDirections{est: geocode.RouteEstimate{DurationSeconds: 600}}
	e := NewEstimator(dir, 10*time.Millisecond, nil)

	e.Schedule(geo.Point{Lat: 12.97, Lng: 77.59}, geo.Point{Lat: 12.98, Lng: 77.60})
	waitFor(t, func() bool { return e.Current() != nil })

	e.Clear()
	if e.Current() != nil {
		t.Fatalf("clear should drop the estimate")
	}

	// a pending request cancelled by Clear never lands
	e.Schedule(geo.Point{Lat: 12.97, Lng: 77.59}, geo.Point{Lat: 12.98, Lng: 77.60})
	e.Clear()
	time.Sleep(50 * time.Millisecond)
	if e.Current() != nil {
		t.Fatalf("estimate resurfaced after clear")
	}
}
