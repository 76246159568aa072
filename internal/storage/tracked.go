package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// TrackedPoolStorage records which pools hold an open position so a restart
// can resume their exit monitors.
type TrackedPoolStorage struct {
	client *redis.Client
}

func NewTrackedPoolStorage(client *redis.Client) *TrackedPoolStorage {
	return &TrackedPoolStorage{client: client}
}

func (s *TrackedPoolStorage) SetTracked(ctx context.Context, poolAddress string, tracked bool) error {
	status := "NO"
	if tracked {
		status = "YES"
	}

	return s.client.HSet(ctx, KEY_TRACKED, poolAddress, status).Err()
}

func (s *TrackedPoolStorage) GetTracked(ctx context.Context, poolAddress string) (bool, error) {
	isTracked, err := s.client.HGet(ctx, KEY_TRACKED, poolAddress).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	switch isTracked {
	case "YES":
		return true, nil
	case "NO":
		return false, nil
	default:
		return false, errors.New("unexpected tracked value in redis")
	}
}
