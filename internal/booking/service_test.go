package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"

	"github.com/pashagolub/pgxmock/v3"
)

var errBooking = errors.New("booking error")

type recordedEmit struct {
	room  string
	event string
}

type fakeHub struct {
	emits []recordedEmit
}

func (f *fakeHub) Emit(room, event string, payload any) {
	f.emits = append(f.emits, recordedEmit{room: room, event: event})
}

func fp(v float64) *float64 { return &v }

func fpPoint(lat, lng float64) *geo.Point { return &geo.Point{Lat: lat, Lng: lng} }

var bookingCols = []string{
	"id", "customer_id", "staff_id", "merchant_id", "status", "pickup_required",
	"lat", "lng", "merchant_lat", "merchant_lng", "otp_verified", "created_at", "updated_at",
}

func bookingRow(id string, status Status, pickup bool, otpVerified bool) *pgxmock.Rows {
	return pgxmock.NewRows(bookingCols).AddRow(
		id, "cust-1", "staff-1", "merch-1", string(status), pickup,
		fp(12.9716), fp(77.5946), fp(12.99), fp(77.61), otpVerified, time.Now(), time.Now(),
	)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	return mock
}

func TestTransitionHappyPath(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusAccepted, true, false))

	mock.ExpectQuery(`UPDATE bookings SET status=\$2`).
		WithArgs("b-1", "REACHED_CUSTOMER").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	hub := &fakeHub{}
	svc := NewService(mock, hub)
	b, err := svc.Transition(context.Background(), "b-1", StatusReachedCustomer)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if b.Status != StatusReachedCustomer {
		t.Fatalf("status not updated: %s", b.Status)
	}
	if len(hub.emits) != 2 || hub.emits[0].room != "booking-b-1" || hub.emits[1].room != "admin" {
		t.Fatalf("unexpected emits: %+v", hub.emits)
	}
	if hub.emits[0].event != EventBookingUpdated {
		t.Fatalf("unexpected event: %s", hub.emits[0].event)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionIllegalLeavesStatus(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusVehiclePicked, true, false))

	hub := &fakeHub{}
	svc := NewService(mock, hub)
	_, err := svc.Transition(context.Background(), "b-1", StatusAccepted)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
	if len(hub.emits) != 0 {
		t.Fatalf("rejected transition broadcast")
	}
	// no UPDATE expected
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionPhotoPrecondition(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusReachedCustomer, true, false))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booking_photos`).
		WithArgs("b-1", PhotoStagePrePickup).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	svc := NewService(mock, nil)
	_, err := svc.Transition(context.Background(), "b-1", StatusVehiclePicked)
	if !errors.Is(err, ErrInsufficientPhotos) {
		t.Fatalf("expected photo precondition failure, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionPhotoPreconditionMet(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusReachedCustomer, true, false))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM booking_photos`).
		WithArgs("b-1", PhotoStagePrePickup).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	mock.ExpectQuery(`UPDATE bookings SET status=\$2`).
		WithArgs("b-1", "VEHICLE_PICKED").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock, nil)
	b, err := svc.Transition(context.Background(), "b-1", StatusVehiclePicked)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if b.Status != StatusVehiclePicked {
		t.Fatalf("status not updated")
	}
}

func TestTransitionOTPGate(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusOutForDelivery, true, false))

	svc := NewService(mock, nil)
	_, err := svc.Transition(context.Background(), "b-1", StatusDelivered)
	if !errors.Is(err, ErrOTPRequired) {
		t.Fatalf("expected otp gate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("status written without otp: %v", err)
	}
}

func TestTransitionDeliveredAfterOTP(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("b-1").
		WillReturnRows(bookingRow("b-1", StatusOutForDelivery, true, true))

	mock.ExpectQuery(`UPDATE bookings SET status=\$2`).
		WithArgs("b-1", "DELIVERED").
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	svc := NewService(mock, nil)
	b, err := svc.Transition(context.Background(), "b-1", StatusDelivered)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if b.Status != StatusDelivered {
		t.Fatalf("status not updated")
	}
}

func TestVerifyDeliveryOTP(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT delivery_otp FROM bookings`).
		WithArgs("b-1").
		WillReturnRows(pgxmock.NewRows([]string{"delivery_otp"}).AddRow("4321"))

	mock.ExpectExec(`UPDATE bookings SET otp_verified=true`).
		WithArgs("b-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	svc := NewService(mock, nil)
	if err := svc.VerifyDeliveryOTP(context.Background(), "b-1", "4321"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyDeliveryOTPWrongCode(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT delivery_otp FROM bookings`).
		WithArgs("b-1").
		WillReturnRows(pgxmock.NewRows([]string{"delivery_otp"}).AddRow("4321"))

	svc := NewService(mock, nil)
	if err := svc.VerifyDeliveryOTP(context.Background(), "b-1", "1111"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("expected invalid otp, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("otp flag written for wrong code: %v", err)
	}
}

func TestListMine(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings(.|\n)*WHERE customer_id=\$1 OR staff_id=\$1`).
		WithArgs("staff-1").
		WillReturnRows(bookingRow("b-1", StatusAccepted, true, false))

	svc := NewService(mock, nil)
	bookings, err := svc.ListMine(context.Background(), "staff-1")
	if err != nil || len(bookings) != 1 {
		t.Fatalf("list mine: %v", err)
	}
	if bookings[0].Location == nil || bookings[0].Location.Lat != 12.9716 {
		t.Fatalf("location not scanned")
	}
}

func TestAddPhoto(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO booking_photos`).
		WithArgs(pgxmock.AnyArg(), "b-1", PhotoStagePrePickup, "https://cdn/p1.jpg").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	svc := NewService(mock, nil)
	photo, err := svc.AddPhoto(context.Background(), "b-1", PhotoStagePrePickup, "https://cdn/p1.jpg")
	if err != nil {
		t.Fatalf("add photo: %v", err)
	}
	if photo.ID == "" {
		t.Fatalf("expected photo id")
	}
}

func TestGetError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT(.|\n)*FROM bookings WHERE id=\$1`).
		WithArgs("missing").
		WillReturnError(errBooking)

	svc := NewService(mock, nil)
	if _, err := svc.Get(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDestination(t *testing.T) {
	b := Booking{
		Status:      StatusVehiclePicked,
		Location:    fpPoint(12.97, 77.59),
		MerchantLoc: fpPoint(12.99, 77.61),
	}
	if d := b.Destination(); d == nil || d.Lat != 12.99 {
		t.Fatalf("expected merchant destination while carrying vehicle in")
	}
	b.Status = StatusOutForDelivery
	if d := b.Destination(); d == nil || d.Lat != 12.97 {
		t.Fatalf("expected customer destination on delivery leg")
	}
}
