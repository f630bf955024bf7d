package tracking

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied is fatal to the session: the platform will not
	// re-prompt, so tracking stays stopped until explicit user action.
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("position acquisition timed out")
	ErrNoFix            = errors.New("no position fix yet")
)

// WatchFunc receives samples or acquisition errors from an active watch.
type WatchFunc func(Sample, error)

// Handle identifies one active watch.
type Handle uint64

// PositionSource produces a stream of raw position samples. At most one
// watch is active per source; starting a new watch cancels the previous
// one.
type PositionSource interface {
	StartWatch(tier Tier, fn WatchFunc) (Handle, error)
	StopWatch(Handle)
	// Current returns the most recent fix, for one-shot proximity-gated
	// actions.
	Current(ctx context.Context) (Sample, error)
}

// FeedSource is a PositionSource fed externally: worker devices push
// fixes over the live channel or the REST fallback and the server-side
// session consumes them as a watch stream.
type FeedSource struct {
	mu      sync.Mutex
	nextID  Handle
	active  Handle
	fn      WatchFunc
	last    Sample
	hasLast bool
}

func NewFeedSource() *FeedSource {
	return &FeedSource{}
}

func (f *FeedSource) StartWatch(_ Tier, fn WatchFunc) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.active = f.nextID
	f.fn = fn
	return f.active, nil
}

func (f *FeedSource) StopWatch(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == h {
		f.active = 0
		f.fn = nil
	}
}

func (f *FeedSource) Current(_ context.Context) (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasLast {
		return Sample{}, ErrNoFix
	}
	return f.last, nil
}

// Push delivers a fix to the active watch. The callback runs outside the
// source lock so it may stop or restart the watch.
func (f *FeedSource) Push(s Sample) {
	f.mu.Lock()
	f.last = s
	f.hasLast = true
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		fn(s, nil)
	}
}

// Fail delivers an acquisition error to the active watch.
func (f *FeedSource) Fail(err error) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		fn(Sample{}, err)
	}
}
