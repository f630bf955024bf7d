package presence

import (
	"context"

	"github.com/Charan951/driveflow-dashboard-sub000/internal/db"
)

// Service records a worker's last-known location and online flag. Writes
// are best-effort from the tracking pipeline's point of view: callers log
// and swallow failures, the next gated write supersedes a missed one.
type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) RecordLocation(ctx context.Context, userID string, lat, lng float64, bookingID string) error {
	var bid *string
	if bookingID != "" {
		bid = &bookingID
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_locations (user_id, lat, lng, booking_id, updated_at)
		VALUES ($1,$2,$3,$4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET lat=EXCLUDED.lat, lng=EXCLUDED.lng, booking_id=EXCLUDED.booking_id, updated_at=now()
	`, userID, lat, lng, bid)
	return err
}

func (s *Service) SetOnline(ctx context.Context, userID string, online bool) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users SET is_online=$2, last_seen_at=now() WHERE id=$1
	`, userID, online)
	return err
}
