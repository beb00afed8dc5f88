package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL outlives a single aggregation tick comfortably and expires
// well before the next calendar date.
const DefaultLockTTL = 10 * time.Minute

// SnapshotLock elects one process instance per snapshot date.
// Key format: snapshot-lock:<yyyy-mm-dd>
type SnapshotLock struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

// NewSnapshotLock creates a SnapshotLock. owner identifies this instance in
// the stored value.
func NewSnapshotLock(client *redis.Client, owner string, ttl time.Duration) *SnapshotLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &SnapshotLock{client: client, owner: owner, ttl: ttl}
}

// Acquire reports whether this instance won the date. The key is never
// released explicitly; it expires after the TTL.
func (l *SnapshotLock) Acquire(ctx context.Context, date time.Time) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(date), l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("snapshot lock: %w", err)
	}
	return ok, nil
}

func (l *SnapshotLock) key(date time.Time) string {
	return "snapshot-lock:" + date.UTC().Format(time.DateOnly)
}
