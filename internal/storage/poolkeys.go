package storage

import (
	"context"
	"encoding/json"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/redis/go-redis/v9"
)

type PoolKeysStorage struct {
	client *redis.Client
}

func NewPoolKeysStorage(client *redis.Client) *PoolKeysStorage {
	return &PoolKeysStorage{client: client}
}

func (s *PoolKeysStorage) SetPoolKeys(ctx context.Context, pKey *types.RaydiumPoolKeys) error {
	data, err := json.Marshal(pKey)
	if err != nil {
		return err
	}

	return s.client.HSet(ctx, pKey.ID.String(), KEY_POOLKEYS, data).Err()
}

func (s *PoolKeysStorage) GetPoolKeys(ctx context.Context, ammId *solana.PublicKey) (*types.RaydiumPoolKeys, error) {
	data, err := s.client.HGet(ctx, ammId.String(), KEY_POOLKEYS).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var pKey types.RaydiumPoolKeys
	if err := json.Unmarshal([]byte(data), &pKey); err != nil {
		return nil, err
	}

	return &pKey, nil
}
