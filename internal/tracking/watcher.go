package tracking

import (
	"errors"
	"sync"
)

// Watcher wraps a PositionSource with the two-tier accuracy fallback. A
// watch starts in High; a timeout or unavailability while in High triggers
// exactly one transparent restart in Low plus a downgrade notice. The
// downgrade is one-way per Start: a failure in Low, or permission denial
// in either tier, surfaces to the fatal callback and the watch stops.
type Watcher struct {
	source PositionSource

	mu         sync.Mutex
	handle     Handle
	active     bool
	downgraded bool

	onSample    func(Sample)
	onDowngrade func()
	onFatal     func(error)
}

func NewWatcher(source PositionSource) *Watcher {
	return &Watcher{source: source}
}

func (w *Watcher) Start(onSample func(Sample), onDowngrade func(), onFatal func(error)) error {
	w.mu.Lock()
	if w.active {
		w.source.StopWatch(w.handle)
		w.active = false
	}
	w.downgraded = false
	w.onSample = onSample
	w.onDowngrade = onDowngrade
	w.onFatal = onFatal
	w.mu.Unlock()

	return w.watch(TierHigh)
}

func (w *Watcher) watch(tier Tier) error {
	handle, err := w.source.StartWatch(tier, w.handleEvent)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.handle = handle
	w.active = true
	w.mu.Unlock()
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active {
		w.source.StopWatch(w.handle)
		w.active = false
	}
}

func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Watcher) handleEvent(s Sample, err error) {
	if err == nil {
		w.mu.Lock()
		active := w.active
		onSample := w.onSample
		w.mu.Unlock()
		if active && onSample != nil {
			onSample(s)
		}
		return
	}

	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}

	recoverable := (errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)) &&
		!errors.Is(err, ErrPermissionDenied)

	if recoverable && !w.downgraded {
		w.downgraded = true
		w.source.StopWatch(w.handle)
		w.active = false
		onDowngrade := w.onDowngrade
		w.mu.Unlock()

		if onDowngrade != nil {
			onDowngrade()
		}
		if err := w.watch(TierLow); err != nil {
			w.fail(err)
		}
		return
	}

	w.source.StopWatch(w.handle)
	w.active = false
	onFatal := w.onFatal
	w.mu.Unlock()

	if onFatal != nil {
		onFatal(err)
	}
}

func (w *Watcher) fail(err error) {
	w.mu.Lock()
	onFatal := w.onFatal
	w.mu.Unlock()
	if onFatal != nil {
		onFatal(err)
	}
}
