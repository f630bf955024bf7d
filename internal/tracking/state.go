package tracking

import (
	"context"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
)

// StateStore persists the two cross-restart session flags: the "was
// tracking" bit and the active booking binding. The controller reads them
// exactly once at initialization.
type StateStore interface {
	IsTracking(ctx context.Context, userID string) (bool, error)
	SetTracking(ctx context.Context, userID string, tracking bool) error
	ActiveBooking(ctx context.Context, userID string) (string, error)
	SetActiveBooking(ctx context.Context, userID, bookingID string) error
}

type RedisState struct {
	rdb *redis.Client
}

func NewRedisState(rdb *redis.Client) *RedisState {
	return &RedisState{rdb: rdb}
}

func trackingKey(userID string) string { return "isTracking:" + userID }
func bindingKey(userID string) string  { return "activeBooking:" + userID }

func (s *RedisState) IsTracking(ctx context.Context, userID string) (bool, error) {
	val, err := s.rdb.Get(ctx, trackingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (s *RedisState) SetTracking(ctx context.Context, userID string, tracking bool) error {
	if !tracking {
		return s.rdb.Del(ctx, trackingKey(userID)).Err()
	}
	return s.rdb.Set(ctx, trackingKey(userID), "1", 0).Err()
}

func (s *RedisState) ActiveBooking(ctx context.Context, userID string) (string, error) {
	val, err := s.rdb.Get(ctx, bindingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (s *RedisState) SetActiveBooking(ctx context.Context, userID, bookingID string) error {
	if bookingID == "" {
		return s.rdb.Del(ctx, bindingKey(userID)).Err()
	}
	return s.rdb.Set(ctx, bindingKey(userID), bookingID, 0).Err()
}

// MemoryState backs tests and redis-less development setups.
type MemoryState struct {
	mu       sync.Mutex
	tracking map[string]bool
	bindings map[string]string
}

func NewMemoryState() *MemoryState {
	return &MemoryState{tracking: map[string]bool{}, bindings: map[string]string{}}
}

func (s *MemoryState) IsTracking(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracking[userID], nil
}

func (s *MemoryState) SetTracking(_ context.Context, userID string, tracking bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking[userID] = tracking
	return nil
}

func (s *MemoryState) ActiveBooking(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings[userID], nil
}

func (s *MemoryState) SetActiveBooking(_ context.Context, userID, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bookingID == "" {
		delete(s.bindings, userID)
		return nil
	}
	s.bindings[userID] = bookingID
	return nil
}
