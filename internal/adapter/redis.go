package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient dials one logical redis database and verifies the
// connection.
func NewRedisClient(addr string, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis host is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis db %d: %w", db, err)
	}

	return client, nil
}
