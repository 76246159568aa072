package agent

import (
	"math/big"
	"testing"

	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCoordinator(t *testing.T) (*CoordinatorAgent, *bus.MessageBus, *stubTrades) {
	t.Helper()
	b := bus.New(100, nil)
	trades := &stubTrades{}
	agent := NewCoordinatorAgent(b, zap.NewNop(), trades)
	agent.Start()
	return agent, b, trades
}

func testPosition(pool string) types.Position {
	return types.Position{
		ID:             "pos-1",
		PoolAddress:    pool,
		TokenAddress:   "mint-1",
		EntryPrice:     big.NewInt(100),
		AmountInSol:    big.NewInt(1_000_000_000),
		AmountOutToken: big.NewInt(42),
		TxHash:         "sig-1",
		Status:         types.PositionStatusOpen,
	}
}

func TestCoordinatorCountsBusTraffic(t *testing.T) {
	agent, b, _ := newCoordinator(t)

	b.Broadcast(types.AgentMempool, types.CandidateSeen{})
	b.Broadcast(types.AgentMempool, types.CandidateSeen{})
	b.Broadcast(types.AgentDetector, types.NewPoolDetected{})
	b.Broadcast(types.AgentDetector, types.PoolDetectionReverted{})
	b.Broadcast(types.AgentDetector, types.GraduationDetected{})
	b.Broadcast(types.AgentSafety, types.SafetyEvaluated{Report: types.SafetyReport{Verdict: types.VerdictApprove}})
	b.Broadcast(types.AgentSafety, types.SafetyEvaluated{Report: types.SafetyReport{Verdict: types.VerdictReject}})
	b.Broadcast(types.AgentSafety, types.SafetyEvaluated{Report: types.SafetyReport{Verdict: types.VerdictReject}})
	b.Broadcast(types.AgentSniper, types.SnipeExecuted{Position: testPosition("pool-1"), Signature: "sig-1"})
	b.Broadcast(types.AgentSniper, types.SnipeFailed{})
	b.Broadcast(types.AgentSniper, types.PositionClosed{Position: testPosition("pool-1")})

	stats := agent.Stats()
	assert.Equal(t, uint64(2), stats.CandidatesSeen)
	assert.Equal(t, uint64(1), stats.PoolsDetected)
	assert.Equal(t, uint64(1), stats.DetectionsReverted)
	assert.Equal(t, uint64(1), stats.Graduations)
	assert.Equal(t, uint64(1), stats.Approved)
	assert.Equal(t, uint64(2), stats.Rejected)
	assert.Equal(t, uint64(1), stats.SnipesExecuted)
	assert.Equal(t, uint64(1), stats.SnipesFailed)
	assert.Equal(t, uint64(1), stats.PositionsClosed)
	assert.Equal(t, uint64(0), stats.OpenPositions)
	assert.Equal(t, types.RunStatusRunning, stats.Status)
}

func TestCoordinatorPauseResume(t *testing.T) {
	agent, b, _ := newCoordinator(t)
	require.Equal(t, types.RunStatusRunning, agent.Status())

	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandPause})
	assert.Equal(t, types.RunStatusPaused, agent.Status())

	changes := b.MessagesByType(types.MsgRunStateChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, types.RunStatusPaused, changes[0].Payload.(types.RunStateChanged).Status)

	// Pausing twice must not re-announce.
	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandPause})
	assert.Len(t, b.MessagesByType(types.MsgRunStateChanged), 1)

	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandResume})
	assert.Equal(t, types.RunStatusRunning, agent.Status())
	assert.Len(t, b.MessagesByType(types.MsgRunStateChanged), 2)
}

func TestCoordinatorRelaysSellToSniper(t *testing.T) {
	_, b, _ := newCoordinator(t)

	var relayed []types.OperatorCommand
	b.SubscribeDirect(types.AgentSniper, func(msg types.AgentMessage) {
		if cmd, ok := msg.Payload.(types.OperatorCommand); ok {
			relayed = append(relayed, cmd)
		}
	})

	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandSell, PoolAddress: "pool-1"})
	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandSellAll})
	// Run-state commands stay with the coordinator.
	b.Broadcast(types.AgentOperator, types.OperatorCommand{Command: types.CommandPause})

	require.Len(t, relayed, 2)
	assert.Equal(t, types.CommandSell, relayed[0].Command)
	assert.Equal(t, "pool-1", relayed[0].PoolAddress)
	assert.Equal(t, types.CommandSellAll, relayed[1].Command)
}

func TestCoordinatorRecordsTradeHistory(t *testing.T) {
	_, b, trades := newCoordinator(t)

	position := testPosition("pool-1")
	b.Broadcast(types.AgentSniper, types.SnipeExecuted{Position: position, Signature: "sig-1"})

	closed := position
	closed.Status = types.PositionStatusClosed
	closed.ExitTxHash = "sig-2"
	b.Broadcast(types.AgentSniper, types.PositionClosed{Position: closed})

	require.Len(t, trades.trades, 2)

	buy := trades.trades[0]
	assert.Equal(t, "buy", buy.Action)
	assert.Equal(t, "pool-1", buy.PoolAddress)
	assert.Equal(t, "1000000000", buy.Amount)
	assert.Equal(t, "sig-1", buy.Signature)

	sell := trades.trades[1]
	assert.Equal(t, "sell", sell.Action)
	assert.Equal(t, "42", sell.Amount)
	assert.Equal(t, "sig-2", sell.Signature)
}
