package booking

import (
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

type Booking struct {
	ID             string     `json:"id"`
	CustomerID     string     `json:"customer_id"`
	StaffID        string     `json:"staff_id,omitempty"`
	MerchantID     string     `json:"merchant_id"`
	Status         Status     `json:"status"`
	PickupRequired bool       `json:"pickup_required"`
	Location       *geo.Point `json:"location,omitempty"`
	MerchantLoc    *geo.Point `json:"merchant_location,omitempty"`
	OTPVerified    bool       `json:"otp_verified"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Photo struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Stage     string    `json:"stage"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Photo stages. Pre-pickup photos gate the VEHICLE_PICKED transition.
const (
	PhotoStagePrePickup  = "pre_pickup"
	PhotoStagePostRepair = "post_repair"
)

func pointFrom(lat, lng *float64) *geo.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lng: *lng}
}

// Destination returns the point live tracking is headed towards for the
// current leg: the merchant while the vehicle is being carried in, the
// customer location otherwise.
func (b Booking) Destination() *geo.Point {
	switch b.Status {
	case StatusVehiclePicked, StatusReachedMerchant:
		return b.MerchantLoc
	default:
		return b.Location
	}
}
