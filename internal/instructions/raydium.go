package instructions

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

type RaydiumSwapInstruction struct {
	bin.BaseVariant
	InAmount                uint64
	MinimumOutAmount        uint64
	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

type LiquiditySwapFixedInInstructionParams struct {
	InAmount         uint64
	MinimumOutAmount uint64
	PoolKeys         types.RaydiumPoolKeys
	TokenAccountIn   solana.PublicKey
	TokenAccountOut  solana.PublicKey
	Owner            solana.PublicKey
}

func (instruction *RaydiumSwapInstruction) ProgramID() solana.PublicKey {
	return config.RAYDIUM_AMM_V4
}

func (instruction *RaydiumSwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return instruction.AccountMetaSlice
}

func (instruction *RaydiumSwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(instruction); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (instruction *RaydiumSwapInstruction) MarshalWithEncoder(encoder *bin.Encoder) (err error) {
	// Swap fixed-in is instruction 9.
	if err = encoder.WriteUint8(9); err != nil {
		return err
	}
	if err = encoder.WriteUint64(instruction.InAmount, binary.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(instruction.MinimumOutAmount, binary.LittleEndian)
}

func MakeRaydiumSwapFixedInInstruction(params *LiquiditySwapFixedInInstructionParams) *RaydiumSwapInstruction {
	ins := &RaydiumSwapInstruction{
		InAmount:         params.InAmount,
		MinimumOutAmount: params.MinimumOutAmount,
		AccountMetaSlice: make(solana.AccountMetaSlice, 0),
	}

	ins.BaseVariant = bin.BaseVariant{
		Impl:   ins,
		TypeID: bin.TypeIDFromUint32(25, binary.LittleEndian),
	}

	ins.AccountMetaSlice = []*solana.AccountMeta{
		solana.Meta(solana.TokenProgramID).WRITE(),
		solana.Meta(params.PoolKeys.ID).WRITE(),
		solana.Meta(params.PoolKeys.Authority),
		solana.Meta(params.PoolKeys.OpenOrders).WRITE(),
		solana.Meta(params.PoolKeys.TargetOrders).WRITE(),
		solana.Meta(params.PoolKeys.BaseVault).WRITE(),
		solana.Meta(params.PoolKeys.QuoteVault).WRITE(),
		solana.Meta(params.PoolKeys.MarketProgramID),
		solana.Meta(params.PoolKeys.MarketID).WRITE(),
		solana.Meta(params.PoolKeys.MarketBids).WRITE(),
		solana.Meta(params.PoolKeys.MarketAsks).WRITE(),
		solana.Meta(params.PoolKeys.MarketEventQueue).WRITE(),
		solana.Meta(params.PoolKeys.MarketBaseVault).WRITE(),
		solana.Meta(params.PoolKeys.MarketQuoteVault).WRITE(),
		solana.Meta(params.PoolKeys.MarketAuthority),
		solana.Meta(params.TokenAccountIn).WRITE(),
		solana.Meta(params.TokenAccountOut).WRITE(),
		solana.Meta(params.Owner).SIGNER(),
	}

	return ins
}

func GetAssociatedTokenAccount(owner solana.PublicKey, mint solana.PublicKey) (solana.PublicKey, error) {
	tokenAccount, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	return tokenAccount, nil
}
