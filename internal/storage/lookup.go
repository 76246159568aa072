package storage

import (
	"context"
	"encoding/json"

	lookup "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/redis/go-redis/v9"
)

type LookupTableStorage struct {
	client *redis.Client
}

func NewLookupTableStorage(client *redis.Client) *LookupTableStorage {
	return &LookupTableStorage{client: client}
}

func (s *LookupTableStorage) SetLookup(ctx context.Context, poolAddress string, lut lookup.AddressLookupTableState) error {
	data, err := json.Marshal(lut)
	if err != nil {
		return err
	}

	return s.client.HSet(ctx, poolAddress, KEY_LOOKUP, data).Err()
}

func (s *LookupTableStorage) GetLookup(ctx context.Context, poolAddress string) (lookup.AddressLookupTableState, error) {
	data, err := s.client.HGet(ctx, poolAddress, KEY_LOOKUP).Result()
	if err != nil {
		if err == redis.Nil {
			return lookup.AddressLookupTableState{}, ErrNotFound
		}
		return lookup.AddressLookupTableState{}, err
	}

	var account lookup.AddressLookupTableState
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return lookup.AddressLookupTableState{}, err
	}

	return account, nil
}
