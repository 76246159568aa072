package types

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

type ProtocolVersion string

const (
	ProtocolRaydiumV4 ProtocolVersion = "raydium-v4"
	ProtocolPumpCurve ProtocolVersion = "pump-curve"
)

// Reserves is a snapshot of one pool's constant-product state. Amounts are
// arbitrary precision because on-chain token amounts overflow 64 bits.
type Reserves struct {
	ReserveA *big.Int // quote side (SOL, lamports)
	ReserveB *big.Int // token side
}

func NewReserves(reserveA, reserveB uint64) Reserves {
	return Reserves{
		ReserveA: new(big.Int).SetUint64(reserveA),
		ReserveB: new(big.Int).SetUint64(reserveB),
	}
}

// K returns the curve invariant reserveA*reserveB.
func (r Reserves) K() *big.Int {
	return new(big.Int).Mul(r.ReserveA, r.ReserveB)
}

func (r Reserves) Valid() bool {
	return r.ReserveA != nil && r.ReserveB != nil &&
		r.ReserveA.Sign() >= 0 && r.ReserveB.Sign() >= 0
}

// PoolCandidate is produced by the detector and read-only thereafter. A pool
// reported again with different reserves is a new snapshot, never a mutation.
type PoolCandidate struct {
	PoolAddress     solana.PublicKey
	TokenA          solana.PublicKey
	TokenB          solana.PublicKey
	FeeTierBps      uint16
	Protocol        ProtocolVersion
	DetectedAtBlock uint64
}

// BondingCurveState mirrors the on-chain pump-style curve account.
type BondingCurveState struct {
	Mint                 solana.PublicKey
	Creator              solana.PublicKey
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
	RealSolReserves      uint64
	RealTokenReserves    uint64
	TokensSold           uint64
	Graduated            bool
	CreatedAt            int64
	GraduatedAt          int64
}

// LogEvent is one confirmed-block program log delivered by the chain client.
type LogEvent struct {
	Signature string
	ProgramID string
	Slot      uint64
	Failed    bool
}

// ReorgNotice names a slot range whose confirmations were invalidated.
type ReorgNotice struct {
	FromSlot uint64
	ToSlot   uint64
}
