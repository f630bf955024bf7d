package tracking

import (
	"context"
	"log"
	"sync"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
)

// BookingLister fetches the worker's bookings for auto-discovery.
// Satisfied by *booking.Service.
type BookingLister interface {
	ListMine(ctx context.Context, userID string) ([]booking.Booking, error)
}

// Binder tracks which single booking the live session is attached to.
// The binding is mirrored to the state store so a restart resumes it; it
// is a weak reference, the session never owns the booking's lifecycle.
type Binder struct {
	userID string
	store  StateStore

	// onBind runs after a new non-empty binding is set; the controller
	// uses it to start tracking when idle.
	onBind func(bookingID string)
	// onUnbind runs after the binding clears, with a user-facing reason.
	onUnbind func(bookingID, reason string)

	mu     sync.Mutex
	active string
}

func NewBinder(userID string, store StateStore) *Binder {
	return &Binder{userID: userID, store: store}
}

func (b *Binder) OnBind(fn func(bookingID string)) { b.onBind = fn }

func (b *Binder) OnUnbind(fn func(bookingID, reason string)) { b.onUnbind = fn }

func (b *Binder) Active() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Restore reads the persisted binding once at controller initialization.
func (b *Binder) Restore(ctx context.Context) {
	id, err := b.store.ActiveBooking(ctx, b.userID)
	if err != nil {
		log.Printf("tracking: restore binding: %v", err)
		return
	}
	b.mu.Lock()
	b.active = id
	b.mu.Unlock()
}

// Bind attaches the session to a booking (explicit worker action).
// Binding over an existing binding ends the previous one first, so its
// alert flag and snapshot are released like any other unbind.
func (b *Binder) Bind(ctx context.Context, bookingID string) {
	if bookingID == "" {
		return
	}
	b.mu.Lock()
	if bookingID == b.active {
		b.mu.Unlock()
		return
	}
	prev := b.active
	b.active = bookingID
	b.mu.Unlock()

	if prev != "" && b.onUnbind != nil {
		b.onUnbind(prev, "live sharing unbound")
	}

	if err := b.store.SetActiveBooking(ctx, b.userID, bookingID); err != nil {
		log.Printf("tracking: persist binding: %v", err)
	}
	if b.onBind != nil {
		b.onBind(bookingID)
	}
}

// Unbind clears the binding, raising the user-visible reason.
func (b *Binder) Unbind(ctx context.Context, reason string) {
	b.mu.Lock()
	if b.active == "" {
		b.mu.Unlock()
		return
	}
	prev := b.active
	b.active = ""
	b.mu.Unlock()

	if err := b.store.SetActiveBooking(ctx, b.userID, ""); err != nil {
		log.Printf("tracking: clear binding: %v", err)
	}
	if b.onUnbind != nil {
		b.onUnbind(prev, reason)
	}
}

// Discover runs one auto-discovery pass: bind iff exactly one of the
// worker's bookings is in an in-progress status; unbind when none are
// and a binding exists. Only called while tracking is active and for the
// worker role.
func (b *Binder) Discover(ctx context.Context, lister BookingLister) {
	bookings, err := lister.ListMine(ctx, b.userID)
	if err != nil {
		log.Printf("tracking: discovery poll: %v", err)
		return
	}

	var open []booking.Booking
	for _, bk := range bookings {
		if booking.StatusIn(bk.Status, booking.InProgressStatuses) {
			open = append(open, bk)
		}
	}

	switch {
	case len(open) == 1:
		b.Bind(ctx, open[0].ID)
	case len(open) == 0 && b.Active() != "":
		b.Unbind(ctx, "no in-progress booking")
	}
}

// HandleBookingUpdate applies the milestone auto-unbind: arrival at the
// garage or a terminal status ends live sharing for the bound booking.
func (b *Binder) HandleBookingUpdate(ctx context.Context, bk booking.Booking) {
	if bk.ID != b.Active() {
		return
	}
	if booking.StatusIn(bk.Status, booking.UnbindStatuses) {
		b.Unbind(ctx, "live sharing unbound")
	}
}
