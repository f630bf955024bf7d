package tracking

import "time"

// BackgroundProvider keeps position acquisition alive while the host app
// is backgrounded. Absence of a native plugin is normal (web context) and
// is represented by the typed no-op provider, never by a nil check at
// call sites.
type BackgroundProvider interface {
	Start(fn WatchFunc) error
	Stop() error
	Name() string
}

// ListenerPlugin is the listener-shaped native plugin contract:
// addListener('location', cb) + start()/stop().
type ListenerPlugin interface {
	AddListener(event string, fn func(lat, lng float64))
	Start() error
	Stop() error
}

// WatcherPlugin is the watcher-shaped native plugin contract:
// addWatcher(options, callback) + removeWatcher(id).
type WatcherPlugin interface {
	AddWatcher(options map[string]any, fn func(lat, lng float64, err error)) (string, error)
	RemoveWatcher(id string) error
}

// DetectProvider probes the two known plugin shapes once at startup and
// returns an adapter over whichever is present, or the no-op provider.
func DetectProvider(listener ListenerPlugin, watcher WatcherPlugin) BackgroundProvider {
	if listener != nil {
		return &listenerProvider{plugin: listener}
	}
	if watcher != nil {
		return &watcherProvider{plugin: watcher}
	}
	return noopProvider{}
}

type noopProvider struct{}

func (noopProvider) Start(WatchFunc) error { return nil }
func (noopProvider) Stop() error           { return nil }
func (noopProvider) Name() string          { return "none" }

type listenerProvider struct {
	plugin ListenerPlugin
}

func (p *listenerProvider) Start(fn WatchFunc) error {
	p.plugin.AddListener("location", func(lat, lng float64) {
		fn(Sample{
			Point:      pointOf(lat, lng),
			Tier:       TierLow,
			CapturedAt: time.Now(),
		}, nil)
	})
	return p.plugin.Start()
}

func (p *listenerProvider) Stop() error { return p.plugin.Stop() }
func (p *listenerProvider) Name() string {
	return "listener"
}

type watcherProvider struct {
	plugin    WatcherPlugin
	watcherID string
}

func (p *watcherProvider) Start(fn WatchFunc) error {
	id, err := p.plugin.AddWatcher(map[string]any{"backgroundMessage": "Sharing live location"}, func(lat, lng float64, err error) {
		if err != nil {
			fn(Sample{}, err)
			return
		}
		fn(Sample{
			Point:      pointOf(lat, lng),
			Tier:       TierLow,
			CapturedAt: time.Now(),
		}, nil)
	})
	if err != nil {
		return err
	}
	p.watcherID = id
	return nil
}

func (p *watcherProvider) Stop() error {
	if p.watcherID == "" {
		return nil
	}
	err := p.plugin.RemoveWatcher(p.watcherID)
	p.watcherID = ""
	return err
}

func (p *watcherProvider) Name() string { return "watcher" }
