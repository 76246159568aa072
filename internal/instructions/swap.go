package instructions

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/liquidity"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

type ComputeUnit struct {
	MicroLamports uint64
	Units         uint32
}

type TxOption struct {
	Blockhash solana.Hash
}

// Builder assembles and signs swap transactions with the injected payer.
type Builder struct {
	payer *solana.Wallet
}

func NewBuilder(payer *solana.Wallet) *Builder {
	return &Builder{payer: payer}
}

func (b *Builder) Payer() solana.PublicKey {
	return b.payer.PublicKey()
}

// MakeSwapInstructions builds a signed Raydium fixed-in swap. action is
// "buy" or "sell" relative to the pool's non-SOL mint.
func (b *Builder) MakeSwapInstructions(
	poolKeys *types.RaydiumPoolKeys,
	wsolTokenAccount solana.PublicKey,
	compute ComputeUnit,
	options TxOption,
	amountIn uint64,
	minAmountOut uint64,
	action string) ([]solana.Signature, *solana.Transaction, error) {

	var tokenAccountIn solana.PublicKey
	var tokenAccountOut solana.PublicKey

	startInstructions := []solana.Instruction{}

	mint, _, err := liquidity.GetMint(poolKeys)
	if err != nil {
		return nil, nil, err
	}

	if action == "buy" {
		ata, ins, err := b.createTokenAccountInstructions(mint)
		if err != nil {
			return nil, nil, err
		}

		tokenAccountIn = wsolTokenAccount
		tokenAccountOut = ata
		startInstructions = ins
	} else {
		ata, err := GetAssociatedTokenAccount(b.payer.PublicKey(), mint)
		if err != nil {
			return nil, nil, err
		}

		tokenAccountIn = ata
		tokenAccountOut = wsolTokenAccount
	}

	swapInstruction := MakeRaydiumSwapFixedInInstruction(&LiquiditySwapFixedInInstructionParams{
		InAmount:         amountIn,
		MinimumOutAmount: minAmountOut,
		PoolKeys:         *poolKeys,
		TokenAccountIn:   tokenAccountIn,
		TokenAccountOut:  tokenAccountOut,
		Owner:            b.payer.PublicKey(),
	})

	ins := []solana.Instruction{}
	ins = append(ins, computeInstructions(compute)...)
	ins = append(ins, startInstructions...)
	ins = append(ins, swapInstruction)

	return b.signTransaction(ins, options.Blockhash)
}

// MakePumpSwapInstructions builds a signed launchpad curve trade. For "buy"
// amountIn is lamports and limit is the token floor; for "sell" amountIn is
// tokens and limit is the lamport floor.
func (b *Builder) MakePumpSwapInstructions(
	mint solana.PublicKey,
	compute ComputeUnit,
	options TxOption,
	amountIn uint64,
	limit uint64,
	action string) ([]solana.Signature, *solana.Transaction, error) {

	var swapInstruction solana.Instruction
	var err error

	if action == "buy" {
		swapInstruction, err = MakePumpBuyInstruction(mint, b.payer.PublicKey(), amountIn, limit)
	} else {
		swapInstruction, err = MakePumpSellInstruction(mint, b.payer.PublicKey(), amountIn, limit)
	}
	if err != nil {
		return nil, nil, err
	}

	ins := append(computeInstructions(compute), swapInstruction)

	return b.signTransaction(ins, options.Blockhash)
}

func (b *Builder) signTransaction(ins []solana.Instruction, blockhash solana.Hash) ([]solana.Signature, *solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		ins,
		blockhash,
		solana.TransactionPayer(b.payer.PublicKey()),
	)
	if err != nil {
		return nil, nil, err
	}

	signature, err := tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			if b.payer.PublicKey().Equals(key) {
				return &b.payer.PrivateKey
			}
			return nil
		},
	)
	if err != nil {
		return nil, nil, err
	}

	return signature, tx, nil
}

func computeInstructions(compute ComputeUnit) []solana.Instruction {
	var ins []solana.Instruction

	if compute.Units > 0 {
		ins = append(ins, computebudget.NewSetComputeUnitLimitInstruction(compute.Units).Build())
	}

	if compute.MicroLamports > 0 {
		ins = append(ins, computebudget.NewSetComputeUnitPriceInstruction(compute.MicroLamports).Build())
	}

	return ins
}

func (b *Builder) createTokenAccountInstructions(mint solana.PublicKey) (solana.PublicKey, []solana.Instruction, error) {
	ins := []solana.Instruction{}

	ata, err := GetAssociatedTokenAccount(b.payer.PublicKey(), mint)
	if err != nil {
		return solana.PublicKey{}, ins, err
	}

	createInstr, err := system.NewCreateAccountInstruction(
		config.TA_RENT_LAMPORTS,
		config.TA_SIZE,
		solana.TokenProgramID,
		b.payer.PublicKey(),
		ata).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	ins = append(ins, createInstr)

	initInstr, err := token.NewInitializeAccountInstruction(
		ata,
		mint,
		b.payer.PublicKey(),
		solana.SysVarRentPubkey).ValidateAndBuild()
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	ins = append(ins, initInstr)

	return ata, ins, nil
}
