package storage

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
)

const (
	KEY_POOLKEYS = "storage::pool_keys"
	KEY_LOOKUP   = "storage::lookup"
	KEY_TRACKED  = "storage::tracked_pool"
	KEY_DEDUP    = "storage::dedup"
)

const (
	TABLE_NAME_TRADE    = "trades"
	TABLE_NAME_POSITION = "positions"
)

// Storage bundles the persistence handles the agents share. MySQL holds the
// permanent records, redis holds caches and the dedup window.
type Storage struct {
	Trade    *TradeStorage
	Position *PositionStorage
	Dedup    *DedupStorage
	PoolKeys *PoolKeysStorage
	Lookup   *LookupTableStorage
	Tracked  *TrackedPoolStorage
}

func New(mysqlClient *sql.DB, redisClient *redis.Client, dedupWindowSec int) *Storage {
	return &Storage{
		Trade:    NewTradeStorage(mysqlClient),
		Position: NewPositionStorage(mysqlClient),
		Dedup:    NewDedupStorage(redisClient, dedupWindowSec),
		PoolKeys: NewPoolKeysStorage(redisClient),
		Lookup:   NewLookupTableStorage(redisClient),
		Tracked:  NewTrackedPoolStorage(redisClient),
	}
}
