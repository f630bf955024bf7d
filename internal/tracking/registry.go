package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/stream"
)

// RegistryOptions carries the shared dependencies every session gets.
type RegistryOptions struct {
	Hub         Broadcaster
	Persistence Persistence
	Bookings    BookingReader
	State       StateStore
	Dedup       DedupStore
	Directions  Directions

	BroadcastGate    time.Duration
	PersistGate      time.Duration
	ProximityRadiusM float64
	ETADebounce      time.Duration
	DiscoveryPoll    time.Duration
}

// Registry holds one Controller per worker and routes inbound samples
// and booking updates to them. It satisfies stream.SampleSink.
type Registry struct {
	opts RegistryOptions

	mu       sync.Mutex
	sessions map[string]*Controller
}

func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{opts: opts, sessions: make(map[string]*Controller)}
}

// Session returns the worker's controller, creating and restoring it on
// first use. Restore runs exactly once per controller lifetime.
func (r *Registry) Session(userID, role, subRole string) *Controller {
	r.mu.Lock()
	ctl, ok := r.sessions[userID]
	if !ok {
		ctl = NewController(Options{
			UserID:           userID,
			Role:             role,
			SubRole:          subRole,
			Hub:              r.opts.Hub,
			Persistence:      r.opts.Persistence,
			Bookings:         r.opts.Bookings,
			State:            r.opts.State,
			Dedup:            r.opts.Dedup,
			Directions:       r.opts.Directions,
			BroadcastGate:    r.opts.BroadcastGate,
			PersistGate:      r.opts.PersistGate,
			ProximityRadiusM: r.opts.ProximityRadiusM,
			ETADebounce:      r.opts.ETADebounce,
			DiscoveryPoll:    r.opts.DiscoveryPoll,
		})
		r.sessions[userID] = ctl
		r.mu.Unlock()

		ctl.Restore(context.Background())
		return ctl
	}
	r.mu.Unlock()
	return ctl
}

// Lookup returns the worker's controller or nil when none exists yet.
func (r *Registry) Lookup(userID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[userID]
}

// Ingest receives a raw position pushed over the live channel. Only
// worker roles produce tracking samples; a bookingId on the event is an
// explicit bind. Samples arriving while the session is idle are dropped,
// tracking starts only through an explicit start or a binding.
func (r *Registry) Ingest(userID, role, subRole string, ev stream.LocationEvent) {
	if role != "staff" {
		return
	}
	ctl := r.Session(userID, role, subRole)

	if ev.BookingID != "" {
		ctl.Bind(context.Background(), ev.BookingID)
	}
	if !ctl.Tracking() {
		return
	}

	capturedAt := time.Now()
	if ev.Timestamp > 0 {
		capturedAt = time.UnixMilli(ev.Timestamp)
	}
	tier := TierHigh
	if ev.Accuracy == "low" {
		tier = TierLow
	}
	ctl.Feed(Sample{Point: pointOf(ev.Lat, ev.Lng), Tier: tier, CapturedAt: capturedAt})
}

// BookingUpdated routes a status change to the assigned worker's
// session, if one is live.
func (r *Registry) BookingUpdated(ctx context.Context, bk booking.Booking) {
	if bk.StaffID == "" {
		return
	}
	if ctl := r.Lookup(bk.StaffID); ctl != nil {
		ctl.OnBookingUpdate(ctx, bk)
	}
}
