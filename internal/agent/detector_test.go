package agent

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testPool = solana.NewWallet().PublicKey()
	testMint = solana.NewWallet().PublicKey()
)

// raydiumInitTx builds a confirmed initialize2 transaction whose account
// layout matches the AMM v4 program: 4 amm, 8 coin mint, 9 pc mint.
func raydiumInitTx(signature string, pool solana.PublicKey, slot uint64) generators.MempoolTxn {
	data := append([]byte{1}, make([]byte, 25)...)

	return generators.MempoolTxn{
		Signature: signature,
		Slot:      slot,
		AccountKeys: []string{
			config.RAYDIUM_AMM_V4.String(),
			pool.String(),
			config.WRAPPED_SOL.String(),
			testMint.String(),
		},
		Instructions: []generators.TxInstruction{{
			ProgramIdIndex: 0,
			Accounts:       []uint8{0, 0, 0, 0, 1, 0, 0, 0, 2, 3},
			Data:           data,
		}},
	}
}

func pumpCreateTx(signature string, mint, curve solana.PublicKey, slot uint64) generators.MempoolTxn {
	data := coder.PumpCreateDiscriminator[:]
	for _, s := range []string{"token", "TKN", "uri"} {
		var length [4]byte
		binary.LittleEndian.PutUint32(length[:], uint32(len(s)))
		data = append(data, length[:]...)
		data = append(data, s...)
	}
	data = append(data, make([]byte, 16)...)

	return generators.MempoolTxn{
		Signature: signature,
		Slot:      slot,
		AccountKeys: []string{
			config.PUMP_FUN_PROGRAM.String(),
			mint.String(),
			curve.String(),
		},
		Instructions: []generators.TxInstruction{{
			ProgramIdIndex: 0,
			Accounts:       []uint8{0, 1, 0, 2},
			Data:           data,
		}},
	}
}

func newDetector(t *testing.T, dedup DedupStore) (*DetectorAgent, *bus.MessageBus) {
	t.Helper()
	b := bus.New(100, nil)
	chain := &stubChain{}
	return NewDetectorAgent(b, zap.NewNop(), chain, nil, dedup, nil, nil, 600, nil, nil), b
}

func TestDetectorReportsRaydiumPoolOnce(t *testing.T) {
	detector, b := newDetector(t, nil)
	ctx := context.Background()

	detector.Process(ctx, raydiumInitTx("sig-1", testPool, 100))
	detector.Process(ctx, raydiumInitTx("sig-2", testPool, 101))

	detected := b.MessagesByType(types.MsgNewPoolDetected)
	require.Len(t, detected, 1)

	candidate := detected[0].Payload.(types.NewPoolDetected).Candidate
	assert.Equal(t, testPool, candidate.PoolAddress)
	assert.Equal(t, config.WRAPPED_SOL, candidate.TokenA)
	assert.Equal(t, testMint, candidate.TokenB)
	assert.Equal(t, config.RaydiumFeeBps, candidate.FeeTierBps)
	assert.Equal(t, types.ProtocolRaydiumV4, candidate.Protocol)
	assert.Equal(t, uint64(100), candidate.DetectedAtBlock)
}

func TestDetectorReportsLaunchpadPool(t *testing.T) {
	curve := solana.NewWallet().PublicKey()
	detector, b := newDetector(t, nil)

	detector.Process(context.Background(), pumpCreateTx("sig-1", testMint, curve, 50))

	detected := b.MessagesByType(types.MsgNewPoolDetected)
	require.Len(t, detected, 1)

	candidate := detected[0].Payload.(types.NewPoolDetected).Candidate
	assert.Equal(t, curve, candidate.PoolAddress)
	assert.Equal(t, testMint, candidate.TokenB)
	assert.Equal(t, types.ProtocolPumpCurve, candidate.Protocol)
}

func TestDetectorIgnoresUnknownPrograms(t *testing.T) {
	detector, b := newDetector(t, nil)

	tx := raydiumInitTx("sig-1", testPool, 100)
	tx.AccountKeys[0] = config.OPENBOOK_ID.String()
	detector.Process(context.Background(), tx)

	assert.Empty(t, b.MessagesByType(types.MsgNewPoolDetected))
}

func TestDetectorReorgRetractsAndReleasesDedup(t *testing.T) {
	dedup := &stubDedup{}
	detector, b := newDetector(t, dedup)
	ctx := context.Background()

	detector.Process(ctx, raydiumInitTx("sig-1", testPool, 100))
	require.Len(t, b.MessagesByType(types.MsgNewPoolDetected), 1)

	detector.HandleReorg(ctx, types.ReorgNotice{FromSlot: 98, ToSlot: 100})

	reverted := b.MessagesByType(types.MsgPoolDetectionReverted)
	require.Len(t, reverted, 1)
	assert.Equal(t, testPool.String(), reverted[0].Payload.(types.PoolDetectionReverted).PoolAddress)
	assert.Equal(t, []string{testPool.String()}, dedup.forgotten)

	// The surviving fork re-confirms the pool; it must be reported again.
	detector.Process(ctx, raydiumInitTx("sig-3", testPool, 102))
	assert.Len(t, b.MessagesByType(types.MsgNewPoolDetected), 2)
}

func TestDetectorReorgOutsideRangeKeepsDetection(t *testing.T) {
	detector, b := newDetector(t, nil)
	ctx := context.Background()

	detector.Process(ctx, raydiumInitTx("sig-1", testPool, 100))
	detector.HandleReorg(ctx, types.ReorgNotice{FromSlot: 200, ToSlot: 210})

	assert.Empty(t, b.MessagesByType(types.MsgPoolDetectionReverted))
	// Still deduplicated.
	detector.Process(ctx, raydiumInitTx("sig-2", testPool, 101))
	assert.Len(t, b.MessagesByType(types.MsgNewPoolDetected), 1)
}

func TestDetectorGraduationOnWatchedCurve(t *testing.T) {
	curve := solana.NewWallet().PublicKey()
	b := bus.New(100, nil)
	chain := &stubChain{curve: &types.BondingCurveState{
		RealSolReserves: config.GraduationSolThreshold,
	}}
	detector := NewDetectorAgent(b, zap.NewNop(), chain, nil, nil, nil, nil, 600, nil, nil)
	ctx := context.Background()

	detector.Process(ctx, pumpCreateTx("sig-1", testMint, curve, 50))

	buyData := append(coder.PumpBuyDiscriminator[:], make([]byte, 16)...)
	buyTx := generators.MempoolTxn{
		Signature:   "sig-2",
		Slot:        60,
		AccountKeys: []string{config.PUMP_FUN_PROGRAM.String(), testMint.String(), curve.String()},
		Instructions: []generators.TxInstruction{{
			ProgramIdIndex: 0,
			Accounts:       []uint8{0, 1, 2},
			Data:           buyData,
		}},
	}
	detector.Process(ctx, buyTx)

	graduated := b.MessagesByType(types.MsgGraduationDetected)
	require.Len(t, graduated, 1)
	payload := graduated[0].Payload.(types.GraduationDetected)
	assert.Equal(t, curve.String(), payload.PoolAddress)
	assert.Equal(t, testMint.String(), payload.Mint)

	// Watch entry is consumed; a second buy stays quiet.
	detector.Process(ctx, buyTx)
	assert.Len(t, b.MessagesByType(types.MsgGraduationDetected), 1)
}

// swapBaseInTx builds a confirmed AMM swap: pool at instruction account 1,
// user owner at 16 for a non-openbook route, plus the compute budget pair.
func swapBaseInTx(signature string, pool, signer solana.PublicKey, amountIn uint64) generators.MempoolTxn {
	data := make([]byte, 17)
	data[0] = 9
	binary.LittleEndian.PutUint64(data[1:], amountIn)

	limitData := make([]byte, 5)
	limitData[0] = 2
	binary.LittleEndian.PutUint32(limitData[1:], 600_000)
	priceData := make([]byte, 5)
	priceData[0] = 3
	binary.LittleEndian.PutUint32(priceData[1:], 1_000)

	accounts := make([]uint8, 17)
	accounts[1] = 1
	accounts[16] = 2

	return generators.MempoolTxn{
		Signature: signature,
		Slot:      120,
		AccountKeys: []string{
			config.RAYDIUM_AMM_V4.String(),
			pool.String(),
			signer.String(),
			config.COMPUTE_PROGRAM.String(),
		},
		Instructions: []generators.TxInstruction{
			{ProgramIdIndex: 3, Data: limitData},
			{ProgramIdIndex: 3, Data: priceData},
			{ProgramIdIndex: 0, Accounts: accounts, Data: data},
		},
		PreTokenBalances: []types.TxTokenBalance{
			{Mint: testMint.String(), Owner: signer.String(), Amount: "100"},
		},
		PostTokenBalances: []types.TxTokenBalance{
			{Mint: testMint.String(), Owner: signer.String(), Amount: "500"},
		},
	}
}

func newRecordingDetector(t *testing.T, tracked *stubTracked) (*DetectorAgent, *stubTrades) {
	t.Helper()
	b := bus.New(100, nil)
	trades := &stubTrades{}
	detector := NewDetectorAgent(b, zap.NewNop(), &stubChain{}, nil, nil, tracked, trades, 600, nil, nil)
	return detector, trades
}

func TestDetectorRecordsSwapOnTrackedPool(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	tracked := &stubTracked{flags: map[string]bool{pool.String(): true}}
	detector, trades := newRecordingDetector(t, tracked)

	detector.Process(context.Background(), swapBaseInTx("sig-swap", pool, signer, 999))

	require.Len(t, trades.trades, 1)
	trade := trades.trades[0]
	assert.Equal(t, pool.String(), trade.PoolAddress)
	assert.Equal(t, testMint.String(), trade.Mint)
	assert.Equal(t, "buy", trade.Action)
	assert.Equal(t, "400", trade.Amount)
	assert.Equal(t, "sig-swap", trade.Signature)
	assert.Equal(t, signer.String(), trade.Signer)
	assert.Equal(t, uint64(600_000), trade.ComputeLimit)
	assert.Equal(t, uint64(1_000), trade.ComputePrice)
	assert.Equal(t, "confirmed", trade.Status)
}

func TestDetectorRecordsSellFromBalanceDrop(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	tracked := &stubTracked{flags: map[string]bool{pool.String(): true}}
	detector, trades := newRecordingDetector(t, tracked)

	tx := swapBaseInTx("sig-sell", pool, signer, 999)
	tx.PreTokenBalances[0].Amount = "500"
	tx.PostTokenBalances[0].Amount = "100"
	detector.Process(context.Background(), tx)

	require.Len(t, trades.trades, 1)
	assert.Equal(t, "sell", trades.trades[0].Action)
	assert.Equal(t, "400", trades.trades[0].Amount)
}

func TestDetectorIgnoresSwapOnUntrackedPool(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	detector, trades := newRecordingDetector(t, &stubTracked{})

	detector.Process(context.Background(), swapBaseInTx("sig-swap", pool, signer, 999))

	assert.Empty(t, trades.trades)
}

func TestDetectorRecordsFailedSwap(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	tracked := &stubTracked{flags: map[string]bool{pool.String(): true}}
	detector, trades := newRecordingDetector(t, tracked)

	tx := swapBaseInTx("sig-failed", pool, signer, 999)
	tx.Error = "custom program error: 0x26"
	detector.Process(context.Background(), tx)

	require.Len(t, trades.trades, 1)
	assert.Equal(t, "failed", trades.trades[0].Status)
}

func TestDetectorRecordsCurveSellOnTrackedCurve(t *testing.T) {
	curve := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	tracked := &stubTracked{flags: map[string]bool{curve.String(): true}}
	detector, trades := newRecordingDetector(t, tracked)

	data := append([]byte{}, coder.PumpSellDiscriminator[:]...)
	amounts := make([]byte, 16)
	binary.LittleEndian.PutUint64(amounts, 777)
	data = append(data, amounts...)

	tx := generators.MempoolTxn{
		Signature: "sig-curve-sell",
		Slot:      130,
		AccountKeys: []string{
			config.PUMP_FUN_PROGRAM.String(),
			testMint.String(),
			curve.String(),
			signer.String(),
		},
		Instructions: []generators.TxInstruction{{
			ProgramIdIndex: 0,
			Accounts:       []uint8{0, 1, 2, 0, 0, 0, 0, 3},
			Data:           data,
		}},
	}
	detector.Process(context.Background(), tx)

	require.Len(t, trades.trades, 1)
	trade := trades.trades[0]
	assert.Equal(t, curve.String(), trade.PoolAddress)
	assert.Equal(t, testMint.String(), trade.Mint)
	assert.Equal(t, "sell", trade.Action)
	assert.Equal(t, "777", trade.Amount)
	assert.Equal(t, signer.String(), trade.Signer)
}
