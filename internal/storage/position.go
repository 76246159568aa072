package storage

import (
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

type PositionStorage struct {
	client *sql.DB
}

func NewPositionStorage(db *sql.DB) *PositionStorage {
	return &PositionStorage{client: db}
}

func (s *PositionStorage) Insert(p *types.Position) error {
	query := `
			INSERT INTO positions (id, poolAddress, tokenAddress, entryPrice, amountInSol, amountOutToken, txHash, openedAt, status, exitTxHash, failReason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`

	_, err := s.client.Exec(
		query,
		p.ID,
		p.PoolAddress,
		p.TokenAddress,
		bigString(p.EntryPrice),
		bigString(p.AmountInSol),
		bigString(p.AmountOutToken),
		p.TxHash,
		p.OpenedAt,
		string(p.Status),
		p.ExitTxHash,
		p.FailReason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}

	return nil
}

// Close marks a position CLOSED with its exit details.
func (s *PositionStorage) Close(id string, exitPrice *big.Int, exitTxHash string, closedAt time.Time) error {
	query := `UPDATE positions SET status = ?, exitPrice = ?, exitTxHash = ?, closedAt = ? WHERE id = ?`

	res, err := s.client.Exec(query, string(types.PositionStatusClosed), bigString(exitPrice), exitTxHash, closedAt, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrExecuteStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Fail marks a position FAILED with the reason kept for later review.
func (s *PositionStorage) Fail(id string, reason string) error {
	query := `UPDATE positions SET status = ?, failReason = ? WHERE id = ?`

	res, err := s.client.Exec(query, string(types.PositionStatusFailed), reason, id)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrExecuteStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PositionStorage) GetOpen() ([]types.Position, error) {
	return s.query(`SELECT * FROM positions WHERE status = ?`, string(types.PositionStatusOpen))
}

func (s *PositionStorage) GetAll() ([]types.Position, error) {
	return s.query(`SELECT * FROM positions`)
}

func (s *PositionStorage) query(query string, args ...any) ([]types.Position, error) {
	rows, err := s.client.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrExecuteQuery, err)
	}
	defer rows.Close()

	var positions []types.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrScanData, err)
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

func scanPosition(rows *sql.Rows) (types.Position, error) {
	var p types.Position
	var entryPrice, amountInSol, amountOutToken string
	var exitPrice sql.NullString
	var closedAt sql.NullTime
	var status string

	if err := rows.Scan(
		&p.ID,
		&p.PoolAddress,
		&p.TokenAddress,
		&entryPrice,
		&amountInSol,
		&amountOutToken,
		&p.TxHash,
		&p.OpenedAt,
		&status,
		&exitPrice,
		&p.ExitTxHash,
		&closedAt,
		&p.FailReason,
	); err != nil {
		return p, err
	}

	p.Status = types.PositionStatus(status)
	p.EntryPrice = parseBig(entryPrice)
	p.AmountInSol = parseBig(amountInSol)
	p.AmountOutToken = parseBig(amountOutToken)
	if exitPrice.Valid {
		p.ExitPrice = parseBig(exitPrice.String)
	}
	if closedAt.Valid {
		t := closedAt.Time
		p.ClosedAt = &t
	}

	return p, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
