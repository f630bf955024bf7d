package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/db"

	"github.com/google/uuid"
)

// Events published on the live channel when a booking changes.
const EventBookingUpdated = "bookingUpdated"

// minPrePickupPhotos gates the VEHICLE_PICKED transition.
const minPrePickupPhotos = 4

var (
	ErrInsufficientPhotos = errors.New("at least 4 pre-pickup photos required before vehicle pickup")
	ErrOTPRequired        = errors.New("delivery otp not verified")
	ErrInvalidOTP         = errors.New("invalid delivery otp")
)

// Broadcaster pushes booking events to interested rooms. Satisfied by
// *stream.Hub.
type Broadcaster interface {
	Emit(room, event string, payload any)
}

type Service struct {
	db  db.Querier
	hub Broadcaster
}

func NewService(db db.Querier, hub Broadcaster) *Service {
	return &Service{db: db, hub: hub}
}

const bookingColumns = `
	id, customer_id, COALESCE(staff_id,''), merchant_id, status, pickup_required,
	lat, lng, merchant_lat, merchant_lng, otp_verified, created_at, updated_at`

func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings WHERE id=$1
	`, id)
	return scanBooking(row)
}

// ListMine returns the bookings the caller participates in, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_id=$1 OR staff_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// Transition moves a booking to next after validating the flow, the
// pre-pickup photo precondition and the delivery OTP gate. A rejected
// transition leaves the stored status untouched.
func (s *Service) Transition(ctx context.Context, id string, next Status) (Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}

	if err := CanTransition(b.PickupRequired, b.Status, next); err != nil {
		return Booking{}, err
	}

	if next == StatusVehiclePicked {
		count, err := s.photoCount(ctx, id, PhotoStagePrePickup)
		if err != nil {
			return Booking{}, err
		}
		if count < minPrePickupPhotos {
			return Booking{}, ErrInsufficientPhotos
		}
	}

	if next == StatusDelivered && !b.OTPVerified {
		return Booking{}, ErrOTPRequired
	}

	row := s.db.QueryRow(ctx, `
		UPDATE bookings SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, id, string(next))
	if err := row.Scan(&b.UpdatedAt); err != nil {
		return Booking{}, err
	}
	b.Status = next

	if s.hub != nil {
		s.hub.Emit("booking-"+id, EventBookingUpdated, b)
		s.hub.Emit("admin", EventBookingUpdated, b)
	}
	return b, nil
}

// VerifyDeliveryOTP checks the numeric close-out code. Success marks the
// booking so the DELIVERED transition may proceed; failure changes
// nothing.
func (s *Service) VerifyDeliveryOTP(ctx context.Context, id, otp string) error {
	var stored string
	if err := s.db.QueryRow(ctx, `
		SELECT delivery_otp FROM bookings WHERE id=$1
	`, id).Scan(&stored); err != nil {
		return err
	}
	if otp == "" || otp != stored {
		return ErrInvalidOTP
	}

	_, err := s.db.Exec(ctx, `
		UPDATE bookings SET otp_verified=true, updated_at=now() WHERE id=$1
	`, id)
	return err
}

func (s *Service) AddPhoto(ctx context.Context, bookingID, stage, url string) (Photo, error) {
	photo := Photo{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Stage:     stage,
		URL:       url,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO booking_photos (id, booking_id, stage, url)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, photo.ID, photo.BookingID, photo.Stage, photo.URL)
	if err := row.Scan(&photo.CreatedAt); err != nil {
		return Photo{}, err
	}
	return photo, nil
}

func (s *Service) photoCount(ctx context.Context, bookingID, stage string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM booking_photos WHERE booking_id=$1 AND stage=$2
	`, bookingID, stage).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (Booking, error) {
	var (
		b                    Booking
		status               string
		lat, lng, mlat, mlng *float64
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&b.ID, &b.CustomerID, &b.StaffID, &b.MerchantID, &status, &b.PickupRequired,
		&lat, &lng, &mlat, &mlng, &b.OTPVerified, &createdAt, &updatedAt); err != nil {
		return Booking{}, err
	}
	b.Status = Status(status)
	b.CreatedAt = createdAt
	b.UpdatedAt = updatedAt
	b.Location = pointFrom(lat, lng)
	b.MerchantLoc = pointFrom(mlat, mlng)
	return b, nil
}
