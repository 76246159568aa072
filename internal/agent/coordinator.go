package agent

import (
	"sync"
	"time"

	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

// Stats is a point-in-time snapshot of pipeline activity, derived entirely
// from bus traffic.
type Stats struct {
	Status             types.RunStatus `json:"status"`
	StartedAt          time.Time       `json:"startedAt"`
	CandidatesSeen     uint64          `json:"candidatesSeen"`
	PoolsDetected      uint64          `json:"poolsDetected"`
	DetectionsReverted uint64          `json:"detectionsReverted"`
	Graduations        uint64          `json:"graduations"`
	Approved           uint64          `json:"approved"`
	Rejected           uint64          `json:"rejected"`
	SnipesExecuted     uint64          `json:"snipesExecuted"`
	SnipesFailed       uint64          `json:"snipesFailed"`
	PositionsClosed    uint64          `json:"positionsClosed"`
	OpenPositions      uint64          `json:"openPositions"`
}

// CoordinatorAgent owns the process-wide run state and the activity counters.
// It relays operator sell commands to the sniper and records executed swaps
// in the trade history; it never touches the chain itself.
type CoordinatorAgent struct {
	bus    *bus.MessageBus
	logger *zap.Logger
	trades TradeStore

	mu     sync.Mutex
	status types.RunStatus
	stats  Stats
}

func NewCoordinatorAgent(b *bus.MessageBus, logger *zap.Logger, trades TradeStore) *CoordinatorAgent {
	return &CoordinatorAgent{
		bus:    b,
		logger: logger.Named("coordinator"),
		trades: trades,
		status: types.RunStatusRunning,
		stats:  Stats{StartedAt: time.Now()},
	}
}

func (a *CoordinatorAgent) Start() {
	a.bus.SubscribeAll(types.AgentCoordinator, a.count)
	a.bus.Subscribe(types.AgentCoordinator, types.MsgOperatorCommand, a.handleCommand)
	a.bus.Subscribe(types.AgentCoordinator, types.MsgSnipeExecuted, a.recordBuy)
	a.bus.Subscribe(types.AgentCoordinator, types.MsgPositionClosed, a.recordSell)
}

func (a *CoordinatorAgent) count(msg types.AgentMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch msg.Type {
	case types.MsgCandidateSeen:
		a.stats.CandidatesSeen++
	case types.MsgNewPoolDetected:
		a.stats.PoolsDetected++
	case types.MsgPoolDetectionReverted:
		a.stats.DetectionsReverted++
	case types.MsgGraduationDetected:
		a.stats.Graduations++
	case types.MsgSafetyReport:
		if evaluated, ok := msg.Payload.(types.SafetyEvaluated); ok {
			if evaluated.Report.Verdict == types.VerdictApprove {
				a.stats.Approved++
			} else {
				a.stats.Rejected++
			}
		}
	case types.MsgSnipeExecuted:
		a.stats.SnipesExecuted++
	case types.MsgSnipeFailed:
		a.stats.SnipesFailed++
	case types.MsgPositionClosed:
		a.stats.PositionsClosed++
	}
}

func (a *CoordinatorAgent) handleCommand(msg types.AgentMessage) {
	cmd, ok := msg.Payload.(types.OperatorCommand)
	if !ok {
		return
	}

	switch cmd.Command {
	case types.CommandPause:
		a.setStatus(types.RunStatusPaused)
	case types.CommandResume:
		a.setStatus(types.RunStatusRunning)
	case types.CommandSell, types.CommandSellAll:
		a.bus.SendTo(types.AgentCoordinator, types.AgentSniper, cmd)
	default:
		a.logger.Warn("unknown operator command", zap.String("command", string(cmd.Command)))
	}
}

func (a *CoordinatorAgent) setStatus(status types.RunStatus) {
	a.mu.Lock()
	changed := a.status != status
	a.status = status
	a.mu.Unlock()
	if !changed {
		return
	}

	a.logger.Info("run state changed", zap.String("status", string(status)))
	a.bus.Broadcast(types.AgentCoordinator, types.RunStateChanged{Status: status})
}

func (a *CoordinatorAgent) recordBuy(msg types.AgentMessage) {
	executed, ok := msg.Payload.(types.SnipeExecuted)
	if !ok {
		return
	}
	a.record(executed.Position.PoolAddress, executed.Position.TokenAddress,
		"buy", executed.Position.AmountInSol.String(), executed.Signature)
}

func (a *CoordinatorAgent) recordSell(msg types.AgentMessage) {
	closed, ok := msg.Payload.(types.PositionClosed)
	if !ok {
		return
	}
	a.record(closed.Position.PoolAddress, closed.Position.TokenAddress,
		"sell", closed.Position.AmountOutToken.String(), closed.Position.ExitTxHash)
}

func (a *CoordinatorAgent) record(pool, mint, action, amount, signature string) {
	trade := &types.Trade{
		PoolAddress: pool,
		Mint:        mint,
		Action:      action,
		Amount:      amount,
		Signature:   signature,
		Status:      "confirmed",
		Timestamp:   time.Now().Unix(),
	}
	if err := a.trades.SetTrade(trade); err != nil {
		a.logger.Error("trade record failed",
			zap.String("pool", pool),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Status reports the current run state.
func (a *CoordinatorAgent) Status() types.RunStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Stats snapshots the counters.
func (a *CoordinatorAgent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.stats
	out.Status = a.status
	if out.SnipesExecuted >= out.PositionsClosed {
		out.OpenPositions = out.SnipesExecuted - out.PositionsClosed
	}
	return out
}
