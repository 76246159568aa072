package agent

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/instructions"
	"github.com/iqbalbaharum/go-pool-sniper/internal/pricing"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

const (
	confirmTimeout   = 30 * time.Second
	monitorInterval  = 5 * time.Second
	snipeComputeCap  = uint32(600_000)
	pendingRetention = 10 * time.Minute
)

// PoolKeyLoader resolves AMM pool keys, cache-first.
type PoolKeyLoader interface {
	GetPoolKeys(ctx context.Context, ammId *solana.PublicKey) (*types.RaydiumPoolKeys, error)
}

// TrackedStore flags pools whose swaps the trade recorder should keep.
type TrackedStore interface {
	SetTracked(ctx context.Context, poolAddress string, tracked bool) error
}

type livePosition struct {
	position  types.Position
	candidate types.PoolCandidate
}

// pendingSnipe is a buy whose confirmation deadline passed. The position is
// fully built; a late confirmation promotes it, the retention sweep forgets
// it.
type pendingSnipe struct {
	position  types.Position
	candidate types.PoolCandidate
	stashedAt time.Time
}

// SniperAgent turns approved safety reports into funded positions. It is the
// only agent that moves funds, so every entry re-checks liquidity, every
// amount is slippage-bounded and the open-position count is capped.
type SniperAgent struct {
	bus       *bus.MessageBus
	logger    *zap.Logger
	chain     ChainReader
	builder   TxBuilder
	submitter rpc.Submitter
	reserves  ReserveSource
	keys      PoolKeyLoader
	positions PositionStore
	tracked   TrackedStore
	params    config.TradingParams
	solPrice  float64

	paused    atomic.Bool
	openCount atomic.Int32

	inbox chan types.SafetyReport
	cmds  chan types.OperatorCommand

	mu         sync.Mutex
	candidates map[string]types.PoolCandidate
	live       map[string]*livePosition
	pending    map[string]pendingSnipe
}

func NewSniperAgent(
	b *bus.MessageBus,
	logger *zap.Logger,
	chain ChainReader,
	builder TxBuilder,
	submitter rpc.Submitter,
	reserves ReserveSource,
	keys PoolKeyLoader,
	positions PositionStore,
	tracked TrackedStore,
	params config.TradingParams,
	solPriceUsd float64,
) *SniperAgent {
	return &SniperAgent{
		bus:        b,
		logger:     logger.Named("sniper"),
		chain:      chain,
		builder:    builder,
		submitter:  submitter,
		reserves:   reserves,
		keys:       keys,
		positions:  positions,
		tracked:    tracked,
		params:     params,
		solPrice:   solPriceUsd,
		inbox:      make(chan types.SafetyReport, 64),
		cmds:       make(chan types.OperatorCommand, 16),
		candidates: make(map[string]types.PoolCandidate),
		live:       make(map[string]*livePosition),
		pending:    make(map[string]pendingSnipe),
	}
}

func (a *SniperAgent) Start(ctx context.Context) error {
	if err := a.resume(); err != nil {
		return err
	}

	a.bus.Subscribe(types.AgentSniper, types.MsgNewPoolDetected, func(msg types.AgentMessage) {
		detected, ok := msg.Payload.(types.NewPoolDetected)
		if !ok {
			return
		}
		a.mu.Lock()
		a.candidates[detected.Candidate.PoolAddress.String()] = detected.Candidate
		a.mu.Unlock()
	})

	a.bus.Subscribe(types.AgentSniper, types.MsgPoolDetectionReverted, func(msg types.AgentMessage) {
		reverted, ok := msg.Payload.(types.PoolDetectionReverted)
		if !ok {
			return
		}
		a.mu.Lock()
		delete(a.candidates, reverted.PoolAddress)
		a.mu.Unlock()
	})

	a.bus.Subscribe(types.AgentSniper, types.MsgSafetyReport, func(msg types.AgentMessage) {
		evaluated, ok := msg.Payload.(types.SafetyEvaluated)
		if !ok || evaluated.Report.Verdict != types.VerdictApprove {
			return
		}
		select {
		case a.inbox <- evaluated.Report:
		default:
			a.logger.Warn("inbox full, approval dropped", zap.String("pool", evaluated.Report.PoolAddress))
		}
	})

	a.bus.Subscribe(types.AgentSniper, types.MsgRunStateChanged, func(msg types.AgentMessage) {
		changed, ok := msg.Payload.(types.RunStateChanged)
		if !ok {
			return
		}
		a.paused.Store(changed.Status == types.RunStatusPaused)
	})

	a.bus.SubscribeDirect(types.AgentSniper, func(msg types.AgentMessage) {
		cmd, ok := msg.Payload.(types.OperatorCommand)
		if !ok {
			return
		}
		select {
		case a.cmds <- cmd:
		default:
			a.logger.Warn("command queue full", zap.String("command", string(cmd.Command)))
		}
	})

	go a.run(ctx)
	go a.monitor(ctx)
	return nil
}

// resume reloads open positions so restarts keep monitoring and the
// concurrency cap counts what is already deployed.
func (a *SniperAgent) resume() error {
	open, err := a.positions.GetOpen()
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range open {
		candidate, err := a.rebuildCandidate(p)
		if err != nil {
			a.logger.Warn("open position not monitorable", zap.String("pool", p.PoolAddress), zap.Error(err))
			continue
		}
		a.live[p.PoolAddress] = &livePosition{position: p, candidate: candidate}
		a.openCount.Add(1)
	}
	if len(open) > 0 {
		a.logger.Info("resumed open positions", zap.Int("count", len(open)))
	}
	return nil
}

// rebuildCandidate reconstructs enough of a candidate from a stored position
// to quote against it. The protocol is probed: a readable curve account means
// a launchpad pool.
func (a *SniperAgent) rebuildCandidate(p types.Position) (types.PoolCandidate, error) {
	pool, err := solana.PublicKeyFromBase58(p.PoolAddress)
	if err != nil {
		return types.PoolCandidate{}, err
	}
	mint, err := solana.PublicKeyFromBase58(p.TokenAddress)
	if err != nil {
		return types.PoolCandidate{}, err
	}

	candidate := types.PoolCandidate{
		PoolAddress: pool,
		TokenA:      config.WRAPPED_SOL,
		TokenB:      mint,
		Protocol:    types.ProtocolRaydiumV4,
		FeeTierBps:  config.RaydiumFeeBps,
	}
	if _, err := a.chain.GetBondingCurveState(pool); err == nil {
		candidate.Protocol = types.ProtocolPumpCurve
		candidate.FeeTierBps = uint16(config.DefaultCurveFeeBps)
	}
	return candidate, nil
}

func (a *SniperAgent) run(ctx context.Context) {
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case report := <-a.inbox:
			a.handle(ctx, report)
		case cmd := <-a.cmds:
			a.handleCommand(ctx, cmd)
		case <-sweep.C:
			a.prunePending()
		}
	}
}

func (a *SniperAgent) handle(ctx context.Context, report types.SafetyReport) {
	if a.paused.Load() {
		a.logger.Info("paused, approval skipped", zap.String("pool", report.PoolAddress))
		return
	}

	a.mu.Lock()
	candidate, known := a.candidates[report.PoolAddress]
	_, alreadyIn := a.live[report.PoolAddress]
	a.mu.Unlock()
	if !known || alreadyIn {
		return
	}

	if !a.claimSlot() {
		a.logger.Info("concurrency cap reached, approval skipped", zap.String("pool", report.PoolAddress))
		return
	}

	if err := a.snipe(ctx, candidate); err != nil {
		a.releaseSlot()
		a.logger.Warn("snipe failed",
			zap.String("pool", report.PoolAddress),
			zap.Error(err))
		a.bus.Broadcast(types.AgentSniper, types.SnipeFailed{
			PoolAddress: report.PoolAddress,
			Reason:      err.Error(),
		})
	}
}

// claimSlot reserves one position slot under the cap, atomically.
func (a *SniperAgent) claimSlot() bool {
	for {
		n := a.openCount.Load()
		if int(n) >= a.params.MaxConcurrentPositions {
			return false
		}
		if a.openCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (a *SniperAgent) releaseSlot() {
	a.openCount.Add(-1)
}

func (a *SniperAgent) snipe(ctx context.Context, candidate types.PoolCandidate) error {
	pool := candidate.PoolAddress.String()

	// Liquidity can drain between the safety verdict and now; re-check
	// against the live reserves this quote will execute on.
	reserves, feeBps, err := a.reserves.PoolReserves(ctx, candidate)
	if err != nil {
		return fmt.Errorf("reserve snapshot: %w", err)
	}
	if usd := liquidityUsd(reserves.ReserveA, a.solPrice); usd < a.params.MinLiquidityUsd {
		return fmt.Errorf("liquidity dropped to %.2f USD before entry", usd)
	}

	amountIn := new(big.Int).SetUint64(a.params.MaxPositionSize)
	quote, err := pricing.CalculateBuyReturn(reserves, amountIn, feeBps)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	minOut := pricing.MinAmountOut(quote.TokensOut, a.params.SlippageBps)

	if a.params.SimulationMode {
		sig := "simulated-" + uuid.NewString()
		a.openPosition(candidate, quote, sig, true)
		return nil
	}

	sig, err := a.submitBuy(ctx, candidate, amountIn.Uint64(), minOut.Uint64())
	if err != nil {
		return err
	}

	status, err := a.chain.AwaitConfirmation(ctx, sig, confirmTimeout)
	switch status {
	case rpc.Confirmed:
		a.openPosition(candidate, quote, sig, false)
		return nil

	case rpc.Reverted:
		// Usually the slippage floor; one retry against fresh reserves.
		a.logger.Info("buy reverted, re-quoting once", zap.String("pool", pool), zap.Error(err))
		return a.retryBuy(ctx, candidate)

	default:
		a.rememberTimedOut(candidate, quote, sig)
		return fmt.Errorf("confirmation timed out for %s", sig)
	}
}

func (a *SniperAgent) retryBuy(ctx context.Context, candidate types.PoolCandidate) error {
	reserves, feeBps, err := a.reserves.PoolReserves(ctx, candidate)
	if err != nil {
		return fmt.Errorf("reserve snapshot on retry: %w", err)
	}

	amountIn := new(big.Int).SetUint64(a.params.MaxPositionSize)
	quote, err := pricing.CalculateBuyReturn(reserves, amountIn, feeBps)
	if err != nil {
		return fmt.Errorf("re-quote: %w", err)
	}
	minOut := pricing.MinAmountOut(quote.TokensOut, a.params.SlippageBps)

	sig, err := a.submitBuy(ctx, candidate, amountIn.Uint64(), minOut.Uint64())
	if err != nil {
		return err
	}

	status, err := a.chain.AwaitConfirmation(ctx, sig, confirmTimeout)
	switch status {
	case rpc.Confirmed:
		a.openPosition(candidate, quote, sig, false)
		return nil
	case rpc.Reverted:
		return fmt.Errorf("buy reverted twice: %w", err)
	default:
		a.rememberTimedOut(candidate, quote, sig)
		return fmt.Errorf("confirmation timed out for %s", sig)
	}
}

func (a *SniperAgent) submitBuy(ctx context.Context, candidate types.PoolCandidate, amountIn, minOut uint64) (string, error) {
	compute := a.computeBudget()
	blockhash, err := a.chain.GetLatestBlockhash()
	if err != nil {
		return "", fmt.Errorf("blockhash: %w", err)
	}
	options := instructions.TxOption{Blockhash: blockhash}

	var tx *solana.Transaction
	switch candidate.Protocol {
	case types.ProtocolPumpCurve:
		_, tx, err = a.builder.MakePumpSwapInstructions(candidate.TokenB, compute, options, amountIn, minOut, "buy")
	case types.ProtocolRaydiumV4:
		var pKey *types.RaydiumPoolKeys
		pKey, err = a.keys.GetPoolKeys(ctx, &candidate.PoolAddress)
		if err != nil {
			return "", fmt.Errorf("pool keys: %w", err)
		}
		var wsol solana.PublicKey
		wsol, err = instructions.GetAssociatedTokenAccount(a.builder.Payer(), config.WRAPPED_SOL)
		if err != nil {
			return "", err
		}
		_, tx, err = a.builder.MakeSwapInstructions(pKey, wsol, compute, options, amountIn, minOut, "buy")
	default:
		return "", errors.New("unsupported protocol version")
	}
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	sig, err := a.submitter.Submit(tx)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	return sig, nil
}

// computeBudget pairs the unit cap with a priority fee, taking the discovered
// network fee when it is below the configured ceiling.
func (a *SniperAgent) computeBudget() instructions.ComputeUnit {
	fee := a.params.PriorityFee
	if discovered, err := a.chain.GetPriorityFee(); err == nil && discovered > 0 && discovered < fee {
		fee = discovered
	}
	return instructions.ComputeUnit{MicroLamports: fee, Units: snipeComputeCap}
}

func (a *SniperAgent) openPosition(candidate types.PoolCandidate, quote *pricing.BuyQuote, signature string, simulated bool) {
	position := a.buildPosition(candidate, quote, signature)

	if err := a.positions.Insert(&position); err != nil {
		a.logger.Error("position insert failed", zap.String("pool", position.PoolAddress), zap.Error(err))
	}
	if err := a.tracked.SetTracked(context.Background(), position.PoolAddress, true); err != nil {
		a.logger.Warn("tracked flag failed", zap.String("pool", position.PoolAddress), zap.Error(err))
	}

	a.mu.Lock()
	a.live[position.PoolAddress] = &livePosition{position: position, candidate: candidate}
	a.mu.Unlock()

	a.logger.Info("position opened",
		zap.String("pool", position.PoolAddress),
		zap.String("signature", signature),
		zap.Bool("simulated", simulated),
		zap.String("entryPrice", position.EntryPrice.String()),
	)
	a.bus.Broadcast(types.AgentSniper, types.SnipeExecuted{
		Position:  position,
		Signature: signature,
		Simulated: simulated,
	})
}

func (a *SniperAgent) buildPosition(candidate types.PoolCandidate, quote *pricing.BuyQuote, signature string) types.Position {
	entryPrice := big.NewInt(0)
	if quote.TokensOut.Sign() > 0 {
		entryPrice = new(big.Int).Mul(quote.AmountInAfterFee, big.NewInt(1_000_000_000))
		entryPrice.Div(entryPrice, quote.TokensOut)
	}

	return types.Position{
		ID:             uuid.NewString(),
		PoolAddress:    candidate.PoolAddress.String(),
		TokenAddress:   candidate.TokenB.String(),
		EntryPrice:     entryPrice,
		AmountInSol:    new(big.Int).Set(quote.AmountIn),
		AmountOutToken: new(big.Int).Set(quote.TokensOut),
		TxHash:         signature,
		OpenedAt:       time.Now(),
		Status:         types.PositionStatusOpen,
	}
}

// rememberTimedOut stashes the would-be position keyed by signature so a late
// confirmation can still claim it, exactly once.
func (a *SniperAgent) rememberTimedOut(candidate types.PoolCandidate, quote *pricing.BuyQuote, signature string) {
	position := a.buildPosition(candidate, quote, signature)
	a.mu.Lock()
	a.pending[signature] = pendingSnipe{position: position, candidate: candidate, stashedAt: time.Now()}
	a.mu.Unlock()
}

// prunePending forgets stashed buys whose late confirmation never came. A
// blockhash expires well inside the retention window, so the signature can no
// longer land; the slot stays released.
func (a *SniperAgent) prunePending() {
	cutoff := time.Now().Add(-pendingRetention)

	a.mu.Lock()
	defer a.mu.Unlock()
	for sig, snipe := range a.pending {
		if snipe.stashedAt.Before(cutoff) {
			delete(a.pending, sig)
			a.logger.Info("stale unconfirmed buy dropped",
				zap.String("pool", snipe.position.PoolAddress),
				zap.String("signature", sig))
		}
	}
}

// ReconcileConfirmation promotes a timed-out buy whose signature later shows
// up confirmed. A signature reconciled once, or never timed out, is a no-op;
// a position is never created twice for the same buy.
func (a *SniperAgent) ReconcileConfirmation(signature string) {
	a.mu.Lock()
	snipe, ok := a.pending[signature]
	if ok {
		delete(a.pending, signature)
	}
	a.mu.Unlock()
	if !ok {
		return
	}

	a.openCount.Add(1)
	a.logger.Info("late confirmation reconciled", zap.String("signature", signature))

	if err := a.positions.Insert(&snipe.position); err != nil {
		a.logger.Error("position insert failed", zap.String("pool", snipe.position.PoolAddress), zap.Error(err))
	}
	if err := a.tracked.SetTracked(context.Background(), snipe.position.PoolAddress, true); err != nil {
		a.logger.Warn("tracked flag failed", zap.String("pool", snipe.position.PoolAddress), zap.Error(err))
	}

	a.mu.Lock()
	a.live[snipe.position.PoolAddress] = &livePosition{position: snipe.position, candidate: snipe.candidate}
	a.mu.Unlock()

	a.bus.Broadcast(types.AgentSniper, types.SnipeExecuted{
		Position:  snipe.position,
		Signature: signature,
	})
}

func (a *SniperAgent) handleCommand(ctx context.Context, cmd types.OperatorCommand) {
	switch cmd.Command {
	case types.CommandSell:
		a.mu.Lock()
		lp, ok := a.live[cmd.PoolAddress]
		a.mu.Unlock()
		if !ok {
			a.logger.Warn("sell for unknown position", zap.String("pool", cmd.PoolAddress))
			return
		}
		a.sellPosition(ctx, lp, "operator sell")

	case types.CommandSellAll:
		a.mu.Lock()
		all := make([]*livePosition, 0, len(a.live))
		for _, lp := range a.live {
			all = append(all, lp)
		}
		a.mu.Unlock()
		for _, lp := range all {
			a.sellPosition(ctx, lp, "operator sellall")
		}
	}
}

// monitor walks open positions and exits any that reached the target
// multiple of their entry price.
func (a *SniperAgent) monitor(ctx context.Context) {
	if a.params.AutoExitMultiple <= 0 {
		return
	}

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			open := make([]*livePosition, 0, len(a.live))
			for _, lp := range a.live {
				open = append(open, lp)
			}
			a.mu.Unlock()

			for _, lp := range open {
				a.checkExit(ctx, lp)
			}
		}
	}
}

func (a *SniperAgent) checkExit(ctx context.Context, lp *livePosition) {
	reserves, _, err := a.reserves.PoolReserves(ctx, lp.candidate)
	if err != nil {
		a.logger.Debug("monitor reserve read failed", zap.String("pool", lp.position.PoolAddress), zap.Error(err))
		return
	}

	price := pricing.CurrentPrice(reserves)
	target := new(big.Float).Mul(
		new(big.Float).SetInt(lp.position.EntryPrice),
		big.NewFloat(a.params.AutoExitMultiple),
	)
	if new(big.Float).SetInt(price).Cmp(target) < 0 {
		return
	}

	a.logger.Info("auto-exit target reached",
		zap.String("pool", lp.position.PoolAddress),
		zap.String("price", price.String()),
		zap.String("entry", lp.position.EntryPrice.String()),
	)
	a.sellPosition(ctx, lp, "auto exit")
}

func (a *SniperAgent) sellPosition(ctx context.Context, lp *livePosition, reason string) {
	pool := lp.position.PoolAddress

	var lastErr error
	for attempt := 0; attempt < a.params.SellRetryLimit; attempt++ {
		exitPrice, sig, err := a.sellOnce(ctx, lp)
		if err != nil {
			lastErr = err
			a.logger.Warn("sell attempt failed",
				zap.String("pool", pool),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		now := time.Now()
		if err := a.positions.Close(lp.position.ID, exitPrice, sig, now); err != nil {
			a.logger.Error("position close failed", zap.String("pool", pool), zap.Error(err))
		}
		if err := a.tracked.SetTracked(context.Background(), pool, false); err != nil {
			a.logger.Warn("tracked flag failed", zap.String("pool", pool), zap.Error(err))
		}

		a.mu.Lock()
		delete(a.live, pool)
		a.mu.Unlock()
		a.releaseSlot()

		closed := lp.position
		closed.Status = types.PositionStatusClosed
		closed.ExitPrice = exitPrice
		closed.ExitTxHash = sig
		closed.ClosedAt = &now

		a.logger.Info("position closed",
			zap.String("pool", pool),
			zap.String("reason", reason),
			zap.String("exitPrice", exitPrice.String()),
		)
		a.bus.Broadcast(types.AgentSniper, types.PositionClosed{Position: closed})
		return
	}

	failReason := fmt.Sprintf("%s: sell retries exhausted: %v", reason, lastErr)
	if err := a.positions.Fail(lp.position.ID, failReason); err != nil {
		a.logger.Error("position fail-mark failed", zap.String("pool", pool), zap.Error(err))
	}
	a.mu.Lock()
	delete(a.live, pool)
	a.mu.Unlock()
	a.releaseSlot()
	a.logger.Error("position abandoned", zap.String("pool", pool), zap.String("reason", failReason))
}

func (a *SniperAgent) sellOnce(ctx context.Context, lp *livePosition) (*big.Int, string, error) {
	reserves, feeBps, err := a.reserves.PoolReserves(ctx, lp.candidate)
	if err != nil {
		return nil, "", fmt.Errorf("reserve snapshot: %w", err)
	}

	quote, err := pricing.CalculateSellReturn(reserves, lp.position.AmountOutToken, feeBps)
	if err != nil {
		return nil, "", fmt.Errorf("sell quote: %w", err)
	}
	minOut := pricing.MinAmountOut(quote.SolOutNet, a.params.SlippageBps)

	exitPrice := big.NewInt(0)
	if quote.TokensIn.Sign() > 0 {
		exitPrice = new(big.Int).Mul(quote.SolOutGross, big.NewInt(1_000_000_000))
		exitPrice.Div(exitPrice, quote.TokensIn)
	}

	if a.params.SimulationMode {
		return exitPrice, "simulated-" + uuid.NewString(), nil
	}

	compute := a.computeBudget()
	blockhash, err := a.chain.GetLatestBlockhash()
	if err != nil {
		return nil, "", fmt.Errorf("blockhash: %w", err)
	}
	options := instructions.TxOption{Blockhash: blockhash}

	var tx *solana.Transaction
	switch lp.candidate.Protocol {
	case types.ProtocolPumpCurve:
		_, tx, err = a.builder.MakePumpSwapInstructions(lp.candidate.TokenB, compute, options, lp.position.AmountOutToken.Uint64(), minOut.Uint64(), "sell")
	case types.ProtocolRaydiumV4:
		var pKey *types.RaydiumPoolKeys
		pKey, err = a.keys.GetPoolKeys(ctx, &lp.candidate.PoolAddress)
		if err != nil {
			return nil, "", fmt.Errorf("pool keys: %w", err)
		}
		var wsol solana.PublicKey
		wsol, err = instructions.GetAssociatedTokenAccount(a.builder.Payer(), config.WRAPPED_SOL)
		if err != nil {
			return nil, "", err
		}
		_, tx, err = a.builder.MakeSwapInstructions(pKey, wsol, compute, options, lp.position.AmountOutToken.Uint64(), minOut.Uint64(), "sell")
	default:
		return nil, "", errors.New("unsupported protocol version")
	}
	if err != nil {
		return nil, "", fmt.Errorf("build transaction: %w", err)
	}

	sig, err := a.submitter.Submit(tx)
	if err != nil {
		return nil, "", fmt.Errorf("submit: %w", err)
	}

	status, err := a.chain.AwaitConfirmation(ctx, sig, confirmTimeout)
	if status != rpc.Confirmed {
		return nil, "", fmt.Errorf("sell not confirmed: %w", err)
	}
	return exitPrice, sig, nil
}

// Paused reports the run gate as the sniper sees it.
func (a *SniperAgent) Paused() bool {
	return a.paused.Load()
}

// OpenPositions returns the number of slots currently claimed.
func (a *SniperAgent) OpenPositions() int {
	return int(a.openCount.Load())
}
