package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStore guards the one-shot proximity alert per booking. Both the
// client-side evaluation and the server-pushed hint share this gate, so
// at most one alert fires per (session, booking) regardless of path.
type DedupStore interface {
	HasFired(ctx context.Context, bookingID string) (bool, error)
	MarkFired(ctx context.Context, bookingID string) error
	Clear(ctx context.Context, bookingID string) error
}

// dedupTTL bounds stale flags for bindings that never unbind cleanly.
const dedupTTL = 24 * time.Hour

type RedisDedup struct {
	rdb *redis.Client
}

func NewRedisDedup(rdb *redis.Client) *RedisDedup {
	return &RedisDedup{rdb: rdb}
}

func dedupKey(bookingID string) string {
	return "nearAlert:" + bookingID
}

func (d *RedisDedup) HasFired(ctx context.Context, bookingID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, dedupKey(bookingID)).Result()
	return n > 0, err
}

func (d *RedisDedup) MarkFired(ctx context.Context, bookingID string) error {
	return d.rdb.Set(ctx, dedupKey(bookingID), "1", dedupTTL).Err()
}

func (d *RedisDedup) Clear(ctx context.Context, bookingID string) error {
	return d.rdb.Del(ctx, dedupKey(bookingID)).Err()
}

// MemoryDedup backs tests and redis-less development setups.
type MemoryDedup struct {
	mu    sync.Mutex
	fired map[string]bool
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{fired: map[string]bool{}}
}

func (d *MemoryDedup) HasFired(_ context.Context, bookingID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired[bookingID], nil
}

func (d *MemoryDedup) MarkFired(_ context.Context, bookingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired[bookingID] = true
	return nil
}

func (d *MemoryDedup) Clear(_ context.Context, bookingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fired, bookingID)
	return nil
}
