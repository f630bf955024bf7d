package tracking

import (
	"context"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/booking"
	"github.com/Charan951/driveflow-dashboard-sub000/internal/shared/geo"
)

// Alert is a one-shot proximity notice for a bound booking.
type Alert struct {
	BookingID string  `json:"bookingId"`
	DistanceM float64 `json:"distanceM"`
}

// Evaluator computes great-circle distance to the current destination and
// raises at most one alert per booking, deduplicated through the shared
// DedupStore.
type Evaluator struct {
	radiusM float64
	dedup   DedupStore
}

func NewEvaluator(radiusM float64, dedup DedupStore) *Evaluator {
	return &Evaluator{radiusM: radiusM, dedup: dedup}
}

// Evaluate returns a non-nil alert when the sample is within the radius
// of the destination, the booking status is in the allow list, and no
// alert has fired for this booking yet.
func (e *Evaluator) Evaluate(ctx context.Context, sample Sample, dest *geo.Point, bookingID string, status booking.Status, allow []booking.Status) (*Alert, error) {
	if dest == nil || bookingID == "" || !sample.Valid() {
		return nil, nil
	}
	if !booking.StatusIn(status, allow) {
		return nil, nil
	}

	distance := geo.DistanceM(sample.Point, *dest)
	if distance > e.radiusM {
		return nil, nil
	}
	return e.fire(ctx, bookingID, distance)
}

// Precomputed handles the server-pushed hint path: the distance arrives
// already computed but passes through the same dedup gate.
func (e *Evaluator) Precomputed(ctx context.Context, bookingID string, distanceM float64) (*Alert, error) {
	if bookingID == "" || distanceM > e.radiusM {
		return nil, nil
	}
	return e.fire(ctx, bookingID, distanceM)
}

func (e *Evaluator) fire(ctx context.Context, bookingID string, distance float64) (*Alert, error) {
	fired, err := e.dedup.HasFired(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if fired {
		return nil, nil
	}
	if err := e.dedup.MarkFired(ctx, bookingID); err != nil {
		return nil, err
	}
	return &Alert{BookingID: bookingID, DistanceM: distance}, nil
}
