package coder

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

// bondingCurveAccount is the anchor account layout of the launchpad curve:
// 8-byte discriminator, then the fields in declaration order.
type bondingCurveAccount struct {
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
	Bump                 uint8
}

type BondingCurveCoder struct{}

func NewBondingCurveCoder() *BondingCurveCoder {
	return &BondingCurveCoder{}
}

func (coder *BondingCurveCoder) Decode(data []byte) (types.BondingCurveState, error) {
	if len(data) < 8 {
		return types.BondingCurveState{}, errors.New("bonding curve: account data too short")
	}

	var acc bondingCurveAccount
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&acc); err != nil {
		return types.BondingCurveState{}, fmt.Errorf("bonding curve: %w", err)
	}

	return types.BondingCurveState{
		Mint:                 acc.Mint,
		Creator:              acc.Creator,
		VirtualSolReserves:   acc.VirtualSolReserves,
		VirtualTokenReserves: acc.VirtualTokenReserves,
		RealSolReserves:      acc.RealSolReserves,
		RealTokenReserves:    acc.RealTokenReserves,
		TokensSold:           acc.TokensSold,
		Graduated:            acc.Graduated,
		CreatedAt:            acc.CreatedAt,
		GraduatedAt:          acc.GraduatedAt,
	}, nil
}
