package storage

import (
	"database/sql"
	"fmt"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/iqbalbaharum/go-pool-sniper/internal/utils"
)

type TradeStorage struct {
	client *sql.DB
}

func NewTradeStorage(db *sql.DB) *TradeStorage {
	return &TradeStorage{client: db}
}

func (s *TradeStorage) SetTrade(trade *types.Trade) error {
	query := `
			INSERT INTO trades (poolAddress, mint, action, amount, signature, computeLimit, computePrice, signer, status, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

	_, err := s.client.Exec(
		query,
		trade.PoolAddress,
		trade.Mint,
		trade.Action,
		trade.Amount,
		trade.Signature,
		trade.ComputeLimit,
		trade.ComputePrice,
		trade.Signer,
		trade.Status,
		trade.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

func (s *TradeStorage) Search(filter types.MySQLFilter) ([]types.Trade, error) {
	query, values := utils.BuildSearchQuery(TABLE_NAME_TRADE, filter)

	rows, err := s.client.Query(query, values...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrExecuteQuery, err)
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		var id int64
		var trade types.Trade
		if err := rows.Scan(
			&id,
			&trade.PoolAddress,
			&trade.Mint,
			&trade.Action,
			&trade.Amount,
			&trade.Signature,
			&trade.ComputeLimit,
			&trade.ComputePrice,
			&trade.Signer,
			&trade.Status,
			&trade.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrScanData, err)
		}
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
