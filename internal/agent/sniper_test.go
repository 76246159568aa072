package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sniperHarness struct {
	agent     *SniperAgent
	bus       *bus.MessageBus
	chain     *stubChain
	submitter *stubSubmitter
	positions *stubPositions
	tracked   *stubTracked
}

func newSniperHarness(t *testing.T, params config.TradingParams) *sniperHarness {
	t.Helper()
	b := bus.New(100, nil)
	chain := &stubChain{}
	submitter := &stubSubmitter{}
	positions := &stubPositions{}
	tracked := &stubTracked{}
	reserves := &stubReserves{
		reserves: types.NewReserves(config.DefaultVirtualSolReserves, config.DefaultVirtualTokenReserves),
		feeBps:   config.DefaultCurveFeeBps,
	}

	agent := NewSniperAgent(
		b, zap.NewNop(), chain,
		&stubBuilder{payer: solana.NewWallet().PublicKey()},
		submitter, reserves, &stubKeys{},
		positions, tracked, params, 150,
	)
	return &sniperHarness{agent: agent, bus: b, chain: chain, submitter: submitter, positions: positions, tracked: tracked}
}

func (h *sniperHarness) approve(candidate types.PoolCandidate) types.SafetyReport {
	pool := candidate.PoolAddress.String()
	h.agent.mu.Lock()
	h.agent.candidates[pool] = candidate
	h.agent.mu.Unlock()
	return types.SafetyReport{PoolAddress: pool, Verdict: types.VerdictApprove}
}

func TestSniperSimulationModeUsesSyntheticHash(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	candidate := curveCandidate()
	h.agent.handle(context.Background(), h.approve(candidate))

	executed := h.bus.MessagesByType(types.MsgSnipeExecuted)
	require.Len(t, executed, 1)

	payload := executed[0].Payload.(types.SnipeExecuted)
	assert.True(t, payload.Simulated)
	assert.True(t, strings.HasPrefix(payload.Signature, "simulated-"))
	assert.Equal(t, types.PositionStatusOpen, payload.Position.Status)
	assert.Positive(t, payload.Position.AmountOutToken.Sign())

	assert.Equal(t, 1, h.positions.insertedCount())
	assert.Equal(t, 1, h.agent.OpenPositions())
	assert.True(t, h.tracked.flags[candidate.PoolAddress.String()])
	// No transaction may leave the process in simulation mode.
	assert.Zero(t, h.submitter.calls)
}

func TestSniperPausedGateSkipsApprovals(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	candidate := curveCandidate()
	report := h.approve(candidate)

	h.agent.paused.Store(true)
	h.agent.handle(context.Background(), report)
	assert.Empty(t, h.bus.MessagesByType(types.MsgSnipeExecuted))
	assert.Zero(t, h.positions.insertedCount())

	h.agent.paused.Store(false)
	h.agent.handle(context.Background(), report)
	assert.Len(t, h.bus.MessagesByType(types.MsgSnipeExecuted), 1)
}

func TestSniperConcurrencyCap(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	params.MaxConcurrentPositions = 1
	h := newSniperHarness(t, params)

	first := h.approve(curveCandidate())
	second := h.approve(curveCandidate())

	h.agent.handle(context.Background(), first)
	h.agent.handle(context.Background(), second)

	assert.Len(t, h.bus.MessagesByType(types.MsgSnipeExecuted), 1)
	assert.Equal(t, 1, h.agent.OpenPositions())
}

func TestSniperRetriesOnceOnRevert(t *testing.T) {
	params := testParams()
	h := newSniperHarness(t, params)
	h.chain.confirmSeq = []rpc.ConfirmationStatus{rpc.Reverted, rpc.Confirmed}
	h.chain.confirmErrs = []error{rpc.ErrReverted, nil}

	candidate := curveCandidate()
	h.agent.handle(context.Background(), h.approve(candidate))

	assert.Equal(t, 2, h.submitter.calls)

	executed := h.bus.MessagesByType(types.MsgSnipeExecuted)
	require.Len(t, executed, 1)
	payload := executed[0].Payload.(types.SnipeExecuted)
	assert.False(t, payload.Simulated)
	assert.Equal(t, "sig-2", payload.Signature)
	assert.Empty(t, h.bus.MessagesByType(types.MsgSnipeFailed))
}

func TestSniperSecondRevertFails(t *testing.T) {
	params := testParams()
	h := newSniperHarness(t, params)
	h.chain.confirmSeq = []rpc.ConfirmationStatus{rpc.Reverted, rpc.Reverted}
	h.chain.confirmErrs = []error{rpc.ErrReverted, rpc.ErrReverted}

	h.agent.handle(context.Background(), h.approve(curveCandidate()))

	assert.Empty(t, h.bus.MessagesByType(types.MsgSnipeExecuted))
	assert.Len(t, h.bus.MessagesByType(types.MsgSnipeFailed), 1)
	assert.Zero(t, h.agent.OpenPositions())
}

func TestSniperLateConfirmationReconciledOnce(t *testing.T) {
	params := testParams()
	h := newSniperHarness(t, params)
	h.chain.confirmSeq = []rpc.ConfirmationStatus{rpc.TimedOut}
	h.chain.confirmErrs = []error{rpc.ErrConfirmationTimeout}

	candidate := curveCandidate()
	h.agent.handle(context.Background(), h.approve(candidate))

	// The deadline passed: slot released, failure reported, nothing stored.
	assert.Len(t, h.bus.MessagesByType(types.MsgSnipeFailed), 1)
	assert.Zero(t, h.positions.insertedCount())
	assert.Zero(t, h.agent.OpenPositions())

	// The buy lands late; the stashed position is promoted exactly once.
	h.agent.ReconcileConfirmation("sig-1")
	h.agent.ReconcileConfirmation("sig-1")

	assert.Equal(t, 1, h.positions.insertedCount())
	assert.Len(t, h.bus.MessagesByType(types.MsgSnipeExecuted), 1)
	assert.Equal(t, 1, h.agent.OpenPositions())

	// A signature that never timed out is a no-op.
	h.agent.ReconcileConfirmation("sig-unknown")
	assert.Equal(t, 1, h.positions.insertedCount())
}

func TestSniperStalePendingBuyIsSwept(t *testing.T) {
	params := testParams()
	h := newSniperHarness(t, params)
	h.chain.confirmSeq = []rpc.ConfirmationStatus{rpc.TimedOut}
	h.chain.confirmErrs = []error{rpc.ErrConfirmationTimeout}

	h.agent.handle(context.Background(), h.approve(curveCandidate()))

	// A fresh stash survives the sweep.
	h.agent.prunePending()
	h.agent.mu.Lock()
	snipe, ok := h.agent.pending["sig-1"]
	h.agent.mu.Unlock()
	require.True(t, ok)

	// Past retention it is forgotten and can no longer mint a position.
	snipe.stashedAt = time.Now().Add(-2 * pendingRetention)
	h.agent.mu.Lock()
	h.agent.pending["sig-1"] = snipe
	h.agent.mu.Unlock()
	h.agent.prunePending()

	h.agent.mu.Lock()
	remaining := len(h.agent.pending)
	h.agent.mu.Unlock()
	assert.Zero(t, remaining)

	h.agent.ReconcileConfirmation("sig-1")
	assert.Zero(t, h.positions.insertedCount())
	assert.Zero(t, h.agent.OpenPositions())
}

func TestSniperOperatorSellClosesPosition(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	candidate := curveCandidate()
	pool := candidate.PoolAddress.String()
	h.agent.handle(context.Background(), h.approve(candidate))
	require.Equal(t, 1, h.agent.OpenPositions())

	h.agent.handleCommand(context.Background(), types.OperatorCommand{
		Command:     types.CommandSell,
		PoolAddress: pool,
	})

	closed := h.bus.MessagesByType(types.MsgPositionClosed)
	require.Len(t, closed, 1)
	payload := closed[0].Payload.(types.PositionClosed)
	assert.Equal(t, types.PositionStatusClosed, payload.Position.Status)
	assert.Equal(t, pool, payload.Position.PoolAddress)
	assert.NotNil(t, payload.Position.ExitPrice)

	assert.Zero(t, h.agent.OpenPositions())
	assert.False(t, h.tracked.flags[pool])
	assert.Len(t, h.positions.closed, 1)
}

func TestSniperSellAllDrainsEveryPosition(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	h.agent.handle(context.Background(), h.approve(curveCandidate()))
	h.agent.handle(context.Background(), h.approve(curveCandidate()))
	require.Equal(t, 2, h.agent.OpenPositions())

	h.agent.handleCommand(context.Background(), types.OperatorCommand{Command: types.CommandSellAll})

	assert.Len(t, h.bus.MessagesByType(types.MsgPositionClosed), 2)
	assert.Zero(t, h.agent.OpenPositions())
}

func TestSniperRunStateSubscription(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.agent.Start(ctx))

	h.bus.Broadcast(types.AgentCoordinator, types.RunStateChanged{Status: types.RunStatusPaused})
	assert.True(t, h.agent.Paused())

	h.bus.Broadcast(types.AgentCoordinator, types.RunStateChanged{Status: types.RunStatusRunning})
	assert.False(t, h.agent.Paused())
}

func TestSniperResumeLoadsOpenPositions(t *testing.T) {
	params := testParams()
	params.SimulationMode = true
	h := newSniperHarness(t, params)

	pool := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	h.positions.open = []types.Position{{
		ID:             "pos-1",
		PoolAddress:    pool.String(),
		TokenAddress:   mint.String(),
		EntryPrice:     big1(),
		AmountInSol:    big1(),
		AmountOutToken: big1(),
		Status:         types.PositionStatusOpen,
		OpenedAt:       time.Now(),
	}}
	h.chain.curve = &types.BondingCurveState{
		VirtualSolReserves:   config.DefaultVirtualSolReserves,
		VirtualTokenReserves: config.DefaultVirtualTokenReserves,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.agent.Start(ctx))

	assert.Equal(t, 1, h.agent.OpenPositions())
	h.agent.mu.Lock()
	lp, ok := h.agent.live[pool.String()]
	h.agent.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, types.ProtocolPumpCurve, lp.candidate.Protocol)
}
