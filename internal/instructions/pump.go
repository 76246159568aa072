package instructions

import (
	"bytes"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
)

// CurveAccounts are the PDAs the launchpad program derives per mint.
type CurveAccounts struct {
	GlobalConfig      solana.PublicKey
	BondingCurve      solana.PublicKey
	TokenLaunch       solana.PublicKey
	BondingCurveVault solana.PublicKey
	SolVault          solana.PublicKey
}

// DeriveCurveAccounts computes the per-mint PDAs of the launchpad program.
func DeriveCurveAccounts(mint solana.PublicKey) (CurveAccounts, error) {
	var accounts CurveAccounts

	globalConfig, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("global_config")},
		config.PUMP_FUN_PROGRAM,
	)
	if err != nil {
		return accounts, err
	}

	bondingCurve, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding_curve"), mint.Bytes()},
		config.PUMP_FUN_PROGRAM,
	)
	if err != nil {
		return accounts, err
	}

	tokenLaunch, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("token_launch"), mint.Bytes()},
		config.PUMP_FUN_PROGRAM,
	)
	if err != nil {
		return accounts, err
	}

	solVault, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("vault"), mint.Bytes()},
		config.PUMP_FUN_PROGRAM,
	)
	if err != nil {
		return accounts, err
	}

	curveVault, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return accounts, err
	}

	accounts.GlobalConfig = globalConfig
	accounts.BondingCurve = bondingCurve
	accounts.TokenLaunch = tokenLaunch
	accounts.BondingCurveVault = curveVault
	accounts.SolVault = solVault
	return accounts, nil
}

// MakePumpBuyInstruction buys tokens off the curve: solAmount lamports in,
// at least minTokensOut back or the program reverts.
func MakePumpBuyInstruction(mint solana.PublicKey, buyer solana.PublicKey, solAmount uint64, minTokensOut uint64) (solana.Instruction, error) {
	accounts, err := DeriveCurveAccounts(mint)
	if err != nil {
		return nil, err
	}

	buyerTokenAccount, err := GetAssociatedTokenAccount(buyer, mint)
	if err != nil {
		return nil, err
	}

	data := encodePumpArgs(coder.PumpBuyDiscriminator, solAmount, minTokensOut)

	metas := []*solana.AccountMeta{
		solana.Meta(accounts.GlobalConfig).WRITE(),
		solana.Meta(mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.TokenLaunch),
		solana.Meta(accounts.BondingCurveVault).WRITE(),
		solana.Meta(accounts.SolVault).WRITE(),
		solana.Meta(buyerTokenAccount).WRITE(),
		solana.Meta(buyer).WRITE().SIGNER(),
		solana.Meta(config.PUMP_FEE_WALLET).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(solana.SystemProgramID),
	}

	return solana.NewInstruction(config.PUMP_FUN_PROGRAM, metas, data), nil
}

// MakePumpSellInstruction sells tokenAmount back to the curve for at least
// minSolOut lamports.
func MakePumpSellInstruction(mint solana.PublicKey, seller solana.PublicKey, tokenAmount uint64, minSolOut uint64) (solana.Instruction, error) {
	accounts, err := DeriveCurveAccounts(mint)
	if err != nil {
		return nil, err
	}

	sellerTokenAccount, err := GetAssociatedTokenAccount(seller, mint)
	if err != nil {
		return nil, err
	}

	data := encodePumpArgs(coder.PumpSellDiscriminator, tokenAmount, minSolOut)

	metas := []*solana.AccountMeta{
		solana.Meta(accounts.GlobalConfig).WRITE(),
		solana.Meta(mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.TokenLaunch),
		solana.Meta(accounts.BondingCurveVault).WRITE(),
		solana.Meta(accounts.SolVault).WRITE(),
		solana.Meta(sellerTokenAccount).WRITE(),
		solana.Meta(seller).WRITE().SIGNER(),
		solana.Meta(config.PUMP_FEE_WALLET).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}

	return solana.NewInstruction(config.PUMP_FUN_PROGRAM, metas, data), nil
}

func encodePumpArgs(discriminator [8]byte, amount uint64, limit uint64) []byte {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	binary.Write(buf, binary.LittleEndian, amount)
	binary.Write(buf, binary.LittleEndian, limit)
	return buf.Bytes()
}
