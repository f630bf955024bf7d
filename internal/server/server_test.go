package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/config"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/stream"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/tracking"
)

func TestHealthRoute(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 status")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil)

	for _, path := range []string{"/bookings/mine", "/tracking/session"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := s.App.Test(req)
		if err != nil {
			t.Fatalf("test request %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

type nullBroadcaster struct{}

func (nullBroadcaster) Emit(string, string, any) {}

type nullPersistence struct{}

func (nullPersistence) RecordLocation(context.Context, string, float64, float64, string) error {
	return nil
}

func (nullPersistence) SetOnline(context.Context, string, bool) error { return nil }

type stubBookings struct {
	bk booking.Booking
}

func (s stubBookings) Get(context.Context, string) (booking.Booking, error) { return s.bk, nil }

func (s stubBookings) ListMine(context.Context, string) ([]booking.Booking, error) {
	return nil, nil
}

func TestBookingFanoutTeesOnce(t *testing.T) {
	ctx := context.Background()
	dest := geo.Point{Lat: 12.9716, Lng: 77.5946}
	bound := booking.Booking{ID: "bk-1", StaffID: "staff-1", Status: booking.StatusAccepted, PickupRequired: true, Location: &dest}

	reg := tracking.NewRegistry(tracking.RegistryOptions{
		Hub:         nullBroadcaster{},
		Persistence: nullPersistence{},
		Bookings:    stubBookings{bk: bound},
		State:       tracking.NewMemoryState(),
		Dedup:       tracking.NewMemoryDedup(),
		ETADebounce: time.Hour,
	})
	ctl := reg.Session("staff-1", "staff", "")
	ctl.Bind(ctx, "bk-1")

	fanout := &bookingFanout{hub: stream.NewHub(nil), reg: reg}
	done := bound
	done.Status = booking.StatusVehicleAtGarage

	// admin-room emission must not tee into the session
	fanout.Emit(stream.RoomAdmin, booking.EventBookingUpdated, done)
	if ctl.ActiveBooking() != "bk-1" {
		t.Fatalf("admin emission must not reach the tracking session")
	}

	// the booking-room emission carries the status change exactly once
	fanout.Emit(stream.BookingRoom("bk-1"), booking.EventBookingUpdated, done)
	if ctl.ActiveBooking() != "" {
		t.Fatalf("booking-room emission should apply the milestone unbind")
	}
}

func TestSessionRegistryWired(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil)
	if s.Sessions == nil {
		t.Fatalf("tracking registry should be wired")
	}
	if s.Stream == nil {
		t.Fatalf("stream hub should be wired")
	}
}
