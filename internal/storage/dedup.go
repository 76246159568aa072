package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupStorage is a sliding first-seen window. SETNX with a TTL means a pool
// address claims its slot exactly once per window, across restarts.
type DedupStorage struct {
	client *redis.Client
	window time.Duration
}

func NewDedupStorage(client *redis.Client, windowSec int) *DedupStorage {
	return &DedupStorage{
		client: client,
		window: time.Duration(windowSec) * time.Second,
	}
}

// MarkSeen returns true when poolAddress was not seen inside the window and
// is now claimed.
func (s *DedupStorage) MarkSeen(ctx context.Context, poolAddress string) (bool, error) {
	key := fmt.Sprintf("%s::%s", KEY_DEDUP, poolAddress)
	return s.client.SetNX(ctx, key, "1", s.window).Result()
}

// Forget releases the claim, used when a detection is retracted by a reorg so
// the pool can be re-reported on the surviving fork.
func (s *DedupStorage) Forget(ctx context.Context, poolAddress string) error {
	key := fmt.Sprintf("%s::%s", KEY_DEDUP, poolAddress)
	return s.client.Del(ctx, key).Err()
}
