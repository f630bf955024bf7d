package tracking

import (
	"time"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

// Tier is the position-acquisition accuracy mode. High is GPS-grade with
// a tight timeout; Low is network-grade with a looser timeout and max-age.
type Tier int

const (
	TierHigh Tier = iota
	TierLow
)

func (t Tier) String() string {
	if t == TierHigh {
		return "high"
	}
	return "low"
}

// Sample is one raw position fix. Samples are transient: only the most
// recent one is ever held.
type Sample struct {
	Point      geo.Point `json:"point"`
	Tier       Tier      `json:"tier"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Valid reports whether the sample carries usable coordinates. Invalid
// samples are discarded silently, never propagated as errors.
func (s Sample) Valid() bool {
	return s.Point.Valid()
}

func pointOf(lat, lng float64) geo.Point {
	return geo.Point{Lat: lat, Lng: lng}
}
