package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/geocode"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/stream"
)

// Broadcaster pushes events to live-channel rooms. Satisfied by
// *stream.Hub.
type Broadcaster interface {
	Emit(room, event string, payload any)
}

// Persistence records last-known location and online status. Satisfied
// by *presence.Service. Calls are best-effort from the pipeline: logged,
// never retried inline, never allowed to block the broadcast path.
type Persistence interface {
	RecordLocation(ctx context.Context, userID string, lat, lng float64, bookingID string) error
	SetOnline(ctx context.Context, userID string, online bool) error
}

// BookingReader reads booking snapshots. Satisfied by *booking.Service.
type BookingReader interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	ListMine(ctx context.Context, userID string) ([]booking.Booking, error)
}

// ProximityStatuses are the statuses preceding an arrival, during which
// the proximity alert may fire.
var ProximityStatuses = []booking.Status{
	booking.StatusAccepted,
	booking.StatusReachedCustomer,
	booking.StatusVehiclePicked,
	booking.StatusOutForDelivery,
}

// Options wires one worker's tracking session.
type Options struct {
	UserID  string
	Role    string
	SubRole string

	Source      *FeedSource
	Hub         Broadcaster
	Persistence Persistence
	Bookings    BookingReader
	State       StateStore
	Dedup       DedupStore
	Directions  Directions
	Background  BackgroundProvider

	BroadcastGate    time.Duration
	PersistGate      time.Duration
	ProximityRadiusM float64
	ETADebounce      time.Duration
	DiscoveryPoll    time.Duration

	Clock func() time.Time
}

// Controller owns one worker's live tracking session: the watch with its
// accuracy fallback, the two rate gates, the booking binder, proximity
// evaluation and the ETA estimator. Failures are isolated per concern; a
// persistence error never stops the broadcast, an ETA error never stops
// sample handling.
type Controller struct {
	opts       Options
	source     *FeedSource
	watcher    *Watcher
	background BackgroundProvider

	broadcastGate *Gate
	persistGate   *Gate
	binder        *Binder
	evaluator     *Evaluator
	estimator     *Estimator

	clock func() time.Time

	mu            sync.Mutex
	tracking      bool
	lastSample    *Sample
	current       *booking.Booking
	stopDiscovery context.CancelFunc
}

func NewController(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Background == nil {
		opts.Background = noopProvider{}
	}
	if opts.Source == nil {
		opts.Source = NewFeedSource()
	}

	c := &Controller{
		opts:          opts,
		source:        opts.Source,
		watcher:       NewWatcher(opts.Source),
		background:    opts.Background,
		broadcastGate: NewGate(opts.BroadcastGate),
		persistGate:   NewGate(opts.PersistGate),
		binder:        NewBinder(opts.UserID, opts.State),
		evaluator:     NewEvaluator(opts.ProximityRadiusM, opts.Dedup),
		clock:         opts.Clock,
	}
	c.estimator = NewEstimator(opts.Directions, opts.ETADebounce, c.pushETA)

	c.binder.OnBind(c.handleBind)
	c.binder.OnUnbind(c.handleUnbind)
	return c
}

// Restore reads the persisted session flags exactly once and resumes a
// session that was live before the restart.
func (c *Controller) Restore(ctx context.Context) {
	c.binder.Restore(ctx)
	if c.binder.Active() != "" {
		c.refreshSnapshot(ctx, c.binder.Active())
	}

	wasTracking, err := c.opts.State.IsTracking(ctx, c.opts.UserID)
	if err != nil {
		log.Printf("tracking: restore flag: %v", err)
		return
	}
	if wasTracking || c.binder.Active() != "" {
		if err := c.Start(ctx); err != nil {
			log.Printf("tracking: resume: %v", err)
		}
	}
}

// Start begins the live session: watch in High accuracy, background
// provider, online flag, auto-discovery loop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.tracking {
		c.mu.Unlock()
		return nil
	}
	c.tracking = true
	c.mu.Unlock()

	if err := c.watcher.Start(c.handleSample, c.handleDowngrade, c.handleFatal); err != nil {
		c.mu.Lock()
		c.tracking = false
		c.mu.Unlock()
		return err
	}

	if err := c.background.Start(func(s Sample, err error) {
		if err == nil {
			c.handleSample(s)
		}
	}); err != nil {
		log.Printf("tracking: background provider start: %v", err)
	}

	if err := c.opts.State.SetTracking(ctx, c.opts.UserID, true); err != nil {
		log.Printf("tracking: persist flag: %v", err)
	}

	go func() {
		if err := c.opts.Persistence.SetOnline(context.Background(), c.opts.UserID, true); err != nil {
			log.Printf("tracking: set online: %v", err)
		}
	}()

	if c.isWorker() && c.opts.DiscoveryPoll > 0 {
		discoveryCtx, cancel := context.WithCancel(context.Background())
		c.mu.Lock()
		c.stopDiscovery = cancel
		c.mu.Unlock()
		go c.discoveryLoop(discoveryCtx)
	}
	return nil
}

// Stop tears the session down. Every step is independent and
// best-effort; a failure is logged, never propagated, and does not skip
// the following steps.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if !c.tracking {
		c.mu.Unlock()
		return
	}
	c.tracking = false
	cancel := c.stopDiscovery
	c.stopDiscovery = nil
	c.mu.Unlock()

	c.watcher.Stop()

	if err := c.background.Stop(); err != nil {
		log.Printf("tracking: background provider stop: %v", err)
	}

	if cancel != nil {
		cancel()
	}

	c.estimator.Clear()

	c.mu.Lock()
	c.lastSample = nil
	c.mu.Unlock()

	if err := c.opts.State.SetTracking(ctx, c.opts.UserID, false); err != nil {
		log.Printf("tracking: clear flag: %v", err)
	}
	if err := c.opts.Persistence.SetOnline(ctx, c.opts.UserID, false); err != nil {
		log.Printf("tracking: set offline: %v", err)
	}
}

// Bind attaches the session to a booking. Binding while idle starts
// tracking: an active binding implies the worker should be broadcasting.
func (c *Controller) Bind(ctx context.Context, bookingID string) {
	c.binder.Bind(ctx, bookingID)
}

// Unbind clears the binding without stopping tracking.
func (c *Controller) Unbind(ctx context.Context) {
	c.binder.Unbind(ctx, "live sharing unbound")
}

func (c *Controller) Tracking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracking
}

func (c *Controller) ActiveBooking() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binder.Active()
}

func (c *Controller) LastSample() *Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSample
}

func (c *Controller) ETA() *geocode.RouteEstimate {
	return c.estimator.Current()
}

// Feed pushes an externally-acquired sample into the session's source.
func (c *Controller) Feed(s Sample) {
	c.source.Push(s)
}

// handleSample is the per-sample pipeline. The gates are evaluated
// independently; persistence runs asynchronously so a slow write never
// delays the next sample's broadcast evaluation.
func (c *Controller) handleSample(s Sample) {
	if !s.Valid() {
		return
	}
	ctx := context.Background()
	now := c.clock()

	c.mu.Lock()
	if !c.tracking {
		c.mu.Unlock()
		return
	}
	c.lastSample = &s
	bookingID := c.binder.Active()
	snapshot := c.current
	c.mu.Unlock()

	if c.broadcastGate.ShouldFire(now) {
		c.broadcast(s, bookingID)
	}

	if c.persistGate.ShouldFire(now) {
		go func() {
			if err := c.opts.Persistence.RecordLocation(context.Background(), c.opts.UserID, s.Point.Lat, s.Point.Lng, bookingID); err != nil {
				log.Printf("tracking: record location: %v", err)
			}
		}()
	}

	c.evaluateProximity(ctx, s, snapshot, bookingID)
	c.scheduleETA(s, snapshot)
}

func (c *Controller) broadcast(s Sample, bookingID string) {
	ev := stream.LocationEvent{
		UserID:    c.opts.UserID,
		Role:      c.opts.Role,
		SubRole:   c.opts.SubRole,
		Lat:       s.Point.Lat,
		Lng:       s.Point.Lng,
		Timestamp: s.CapturedAt.UnixMilli(),
		BookingID: bookingID,
		Accuracy:  s.Tier.String(),
	}
	if bookingID != "" {
		c.opts.Hub.Emit(stream.BookingRoom(bookingID), stream.EventLocation, ev)
	}
	c.opts.Hub.Emit(stream.RoomAdmin, stream.EventLocation, ev)
}

func (c *Controller) evaluateProximity(ctx context.Context, s Sample, snapshot *booking.Booking, bookingID string) {
	if snapshot == nil || bookingID == "" {
		return
	}
	alert, err := c.evaluator.Evaluate(ctx, s, snapshot.Destination(), bookingID, snapshot.Status, ProximityStatuses)
	if err != nil {
		log.Printf("tracking: proximity evaluation: %v", err)
		return
	}
	if alert != nil {
		c.emitAlert(*alert)
	}
}

// HandleNearbyHint is the server-pushed proximity path: the distance is
// precomputed upstream but shares the dedup gate with local evaluation.
func (c *Controller) HandleNearbyHint(ctx context.Context, bookingID string, distanceM float64) {
	alert, err := c.evaluator.Precomputed(ctx, bookingID, distanceM)
	if err != nil {
		log.Printf("tracking: proximity hint: %v", err)
		return
	}
	if alert != nil {
		c.emitAlert(*alert)
	}
}

func (c *Controller) emitAlert(alert Alert) {
	c.opts.Hub.Emit(stream.BookingRoom(alert.BookingID), stream.EventNearbyStaff, stream.NearbyStaffEvent{
		BookingID: alert.BookingID,
		StaffID:   c.opts.UserID,
		DistanceM: alert.DistanceM,
	})
	c.notify("approaching destination")
}

func (c *Controller) scheduleETA(s Sample, snapshot *booking.Booking) {
	if snapshot == nil || !etaRelevant(*snapshot) {
		c.estimator.Clear()
		return
	}
	dest := snapshot.Destination()
	if dest == nil {
		c.estimator.Clear()
		return
	}
	c.estimator.Schedule(s.Point, *dest)
}

func etaRelevant(bk booking.Booking) bool {
	return bk.PickupRequired && booking.StatusIn(bk.Status, booking.ETAStatuses)
}

// OnBookingUpdate reacts to a bookingUpdated event: refresh the cached
// snapshot, apply the milestone auto-unbind and re-check ETA relevance.
func (c *Controller) OnBookingUpdate(ctx context.Context, bk booking.Booking) {
	c.mu.Lock()
	if bk.ID == c.binder.Active() {
		snapshot := bk
		c.current = &snapshot
	}
	last := c.lastSample
	c.mu.Unlock()

	c.binder.HandleBookingUpdate(ctx, bk)

	c.mu.Lock()
	snapshot := c.current
	c.mu.Unlock()
	if snapshot == nil || !etaRelevant(*snapshot) || snapshot.Destination() == nil {
		c.estimator.Clear()
	} else if last != nil {
		c.estimator.Schedule(last.Point, *snapshot.Destination())
	}
}

func (c *Controller) handleBind(bookingID string) {
	ctx := context.Background()
	c.refreshSnapshot(ctx, bookingID)

	if !c.Tracking() {
		if err := c.Start(ctx); err != nil {
			log.Printf("tracking: start on bind: %v", err)
		}
	}
}

func (c *Controller) handleUnbind(bookingID, reason string) {
	ctx := context.Background()
	if err := c.opts.Dedup.Clear(ctx, bookingID); err != nil {
		log.Printf("tracking: clear alert flag: %v", err)
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.estimator.Clear()
	c.notify(reason)
}

func (c *Controller) refreshSnapshot(ctx context.Context, bookingID string) {
	bk, err := c.opts.Bookings.Get(ctx, bookingID)
	if err != nil {
		log.Printf("tracking: booking snapshot: %v", err)
		return
	}
	c.mu.Lock()
	c.current = &bk
	c.mu.Unlock()
}

func (c *Controller) handleDowngrade() {
	c.notify("location accuracy reduced, tracking continues")
}

func (c *Controller) handleFatal(err error) {
	if errors.Is(err, ErrPermissionDenied) {
		c.notify("location permission denied, live sharing stopped")
	} else {
		c.notify("location unavailable, live sharing stopped")
	}
	c.Stop(context.Background())
}

func (c *Controller) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(c.opts.DiscoveryPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Tracking() {
				continue
			}
			c.binder.Discover(ctx, c.opts.Bookings)
		}
	}
}

func (c *Controller) isWorker() bool {
	return c.opts.Role == "staff" && c.opts.SubRole == "pickup_drop"
}

func (c *Controller) notify(message string) {
	c.opts.Hub.Emit(stream.UserRoom(c.opts.UserID), stream.EventNotice, map[string]string{"message": message})
}

// pushETA forwards a settled estimate to whoever watches the booking.
func (c *Controller) pushETA(est geocode.RouteEstimate) {
	bookingID := c.ActiveBooking()
	if bookingID == "" {
		return
	}
	c.opts.Hub.Emit(stream.BookingRoom(bookingID), stream.EventETA, est)
}
