package types

import (
	"math/big"
	"time"
)

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
	PositionStatusFailed PositionStatus = "FAILED"
)

// Position is the permanent record of one trade's lifecycle. It is created
// when a buy confirms and only ever transitions status, never deleted.
type Position struct {
	ID             string
	PoolAddress    string
	TokenAddress   string
	EntryPrice     *big.Int // lamports per token, scaled by 1e9
	AmountInSol    *big.Int // lamports spent, fee included
	AmountOutToken *big.Int
	TxHash         string
	OpenedAt       time.Time
	Status         PositionStatus
	ExitPrice      *big.Int
	ExitTxHash     string
	ClosedAt       *time.Time
	FailReason     string
}
