package agent

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/pricing"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

const splMintAccountSize = 82

// reportRetention bounds the exactly-once bookkeeping. A candidate can only
// repeat inside the detector's dedup window, which is far shorter.
const reportRetention = time.Hour

// SafetyAgent runs the check battery against every detected pool and
// publishes exactly one SafetyReport per candidate. Hard-limit violations
// and checks that cannot complete both force a Reject regardless of the
// weighted score.
type SafetyAgent struct {
	bus      *bus.MessageBus
	logger   *zap.Logger
	chain    ChainReader
	reserves ReserveSource
	params   config.TradingParams
	weights  config.SafetyWeights
	solPrice float64

	inbox chan types.PoolCandidate

	mu        sync.Mutex
	evaluated map[string]time.Time
	abandoned map[string]time.Time
}

func NewSafetyAgent(
	b *bus.MessageBus,
	logger *zap.Logger,
	chain ChainReader,
	reserves ReserveSource,
	params config.TradingParams,
	weights config.SafetyWeights,
	solPriceUsd float64,
) *SafetyAgent {
	return &SafetyAgent{
		bus:       b,
		logger:    logger.Named("safety"),
		chain:     chain,
		reserves:  reserves,
		params:    params,
		weights:   weights,
		solPrice:  solPriceUsd,
		inbox:     make(chan types.PoolCandidate, 256),
		evaluated: make(map[string]time.Time),
		abandoned: make(map[string]time.Time),
	}
}

func (a *SafetyAgent) Start(ctx context.Context) {
	a.bus.Subscribe(types.AgentSafety, types.MsgNewPoolDetected, func(msg types.AgentMessage) {
		detected, ok := msg.Payload.(types.NewPoolDetected)
		if !ok {
			return
		}
		select {
		case a.inbox <- detected.Candidate:
		default:
			a.logger.Warn("inbox full, candidate dropped",
				zap.String("pool", detected.Candidate.PoolAddress.String()))
		}
	})

	a.bus.Subscribe(types.AgentSafety, types.MsgPoolDetectionReverted, func(msg types.AgentMessage) {
		reverted, ok := msg.Payload.(types.PoolDetectionReverted)
		if !ok {
			return
		}
		a.mu.Lock()
		a.abandoned[reverted.PoolAddress] = time.Now()
		a.mu.Unlock()
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case candidate := <-a.inbox:
				a.handle(ctx, candidate)
			}
		}
	}()
}

func (a *SafetyAgent) handle(ctx context.Context, candidate types.PoolCandidate) {
	pool := candidate.PoolAddress.String()

	a.mu.Lock()
	a.pruneSeen()
	_, seen := a.evaluated[pool]
	_, retracted := a.abandoned[pool]
	if seen || retracted {
		a.mu.Unlock()
		return
	}
	a.evaluated[pool] = time.Now()
	a.mu.Unlock()

	report := a.Evaluate(ctx, candidate)

	// A retraction that raced the evaluation wins; the report is dropped.
	a.mu.Lock()
	_, dropped := a.abandoned[pool]
	a.mu.Unlock()
	if dropped {
		a.logger.Info("report dropped after retraction", zap.String("pool", pool))
		return
	}

	a.logger.Info("pool evaluated",
		zap.String("pool", pool),
		zap.Int("riskScore", report.RiskScore),
		zap.String("verdict", string(report.Verdict)),
		zap.Strings("reasons", report.Reasons),
	)
	a.bus.Broadcast(types.AgentSafety, types.SafetyEvaluated{Report: report})
}

// pruneSeen drops bookkeeping entries older than the retention window.
// Callers hold the lock.
func (a *SafetyAgent) pruneSeen() {
	cutoff := time.Now().Add(-reportRetention)
	for pool, at := range a.evaluated {
		if at.Before(cutoff) {
			delete(a.evaluated, pool)
		}
	}
	for pool, at := range a.abandoned {
		if at.Before(cutoff) {
			delete(a.abandoned, pool)
		}
	}
}

// Evaluate runs the full battery and assembles the report. Each sub-check
// contributes a 0-100 score combined by the configured weights; a check that
// cannot complete scores 100 and forces the verdict closed.
func (a *SafetyAgent) Evaluate(ctx context.Context, candidate types.PoolCandidate) types.SafetyReport {
	report := types.SafetyReport{
		PoolAddress: candidate.PoolAddress.String(),
	}

	var hardViolations []string
	var unavailable bool

	addReason := func(format string, args ...any) {
		report.Reasons = append(report.Reasons, fmt.Sprintf(format, args...))
	}

	reserves, feeBps, err := a.reserves.PoolReserves(ctx, candidate)
	liquidityScore := 100
	tradeScore := 100
	honeypotScore := 100
	if err != nil {
		unavailable = true
		addReason("reserves unavailable: %v", err)
	} else {
		liquidityScore = a.checkLiquidity(reserves, &report, &hardViolations)

		tScore, hScore, ok := a.checkRoundTrip(reserves, feeBps, &report, &hardViolations)
		if !ok {
			unavailable = true
			addReason("trade simulation unavailable")
		}
		tradeScore, honeypotScore = tScore, hScore
	}

	ownershipScore, ok := a.checkOwnership(candidate, &report)
	if !ok {
		unavailable = true
		ownershipScore = 100
		addReason("ownership check unavailable")
	}

	blacklistScore, ok := a.checkBlacklist(candidate, &report)
	if !ok {
		unavailable = true
		blacklistScore = 100
		addReason("blacklist scan unavailable")
	}

	report.RiskScore = weightedScore(a.weights, liquidityScore, ownershipScore, honeypotScore, tradeScore, blacklistScore)
	report.RiskLevel = types.RiskLevelFromScore(report.RiskScore)

	report.Reasons = append(report.Reasons, hardViolations...)

	report.Verdict = types.VerdictApprove
	switch {
	case unavailable || len(hardViolations) > 0:
		report.Verdict = types.VerdictReject
	case report.RiskScore > a.params.RiskThreshold:
		report.Verdict = types.VerdictReject
		addReason("risk score %d above threshold %d", report.RiskScore, a.params.RiskThreshold)
	}

	return report
}

func (a *SafetyAgent) checkLiquidity(reserves types.Reserves, report *types.SafetyReport, hard *[]string) int {
	report.LiquidityUsd = liquidityUsd(reserves.ReserveA, a.solPrice)

	switch {
	case report.LiquidityUsd < a.params.MinLiquidityUsd:
		*hard = append(*hard, fmt.Sprintf("liquidity %.2f USD below floor %.2f", report.LiquidityUsd, a.params.MinLiquidityUsd))
		return 100
	case report.LiquidityUsd < 2*a.params.MinLiquidityUsd:
		return 50
	default:
		return 0
	}
}

// checkRoundTrip simulates a buy followed by selling everything back and
// derives tax estimates and the honeypot signal from the outcome. Returns
// (taxScore, honeypotScore, ok).
func (a *SafetyAgent) checkRoundTrip(reserves types.Reserves, feeBps uint64, report *types.SafetyReport, hard *[]string) (int, int, bool) {
	probe := new(big.Int).SetUint64(a.params.MaxPositionSize)

	buy, err := pricing.CalculateBuyReturn(reserves, probe, feeBps)
	if err != nil {
		return 100, 100, false
	}

	sell, err := pricing.CalculateSellReturn(buy.NewReserves, buy.TokensOut, feeBps)
	if err != nil {
		return 100, 100, false
	}

	report.EstimatedBuyTaxBps = bpsOf(buy.Fee, probe)
	report.EstimatedSellTaxBps = bpsOf(sell.Fee, sell.SolOutGross)

	// A curve that keeps most of a round trip behaves like a honeypot even
	// when the sell path technically executes.
	lossBps := uint64(10000)
	if probe.Sign() > 0 {
		kept := new(big.Int).Sub(probe, sell.SolOutNet)
		lossBps = bpsOf(kept, probe)
	}

	honeypotScore := 0
	if sell.SolOutNet.Sign() == 0 || lossBps > 5000 {
		report.HoneypotSuspected = true
		honeypotScore = 100
		*hard = append(*hard, fmt.Sprintf("round trip keeps %d bps of the probe", lossBps))
	}

	taxScore := 0
	if report.EstimatedBuyTaxBps > a.params.MaxBuyTaxBps {
		*hard = append(*hard, fmt.Sprintf("estimated buy tax %d bps exceeds limit %d", report.EstimatedBuyTaxBps, a.params.MaxBuyTaxBps))
		taxScore = 100
	}
	if report.EstimatedSellTaxBps > a.params.MaxSellTaxBps {
		*hard = append(*hard, fmt.Sprintf("estimated sell tax %d bps exceeds limit %d", report.EstimatedSellTaxBps, a.params.MaxSellTaxBps))
		taxScore = 100
	}
	if taxScore == 0 {
		limit := a.params.MaxBuyTaxBps + a.params.MaxSellTaxBps
		if limit > 0 {
			taxScore = int((report.EstimatedBuyTaxBps + report.EstimatedSellTaxBps) * 100 / limit)
			if taxScore > 100 {
				taxScore = 100
			}
		}
	}

	return taxScore, honeypotScore, true
}

// checkOwnership reads the mint account and treats retained mint or freeze
// authority as risk.
func (a *SafetyAgent) checkOwnership(candidate types.PoolCandidate, report *types.SafetyReport) (int, bool) {
	data, err := a.chain.GetAccountData(poolMint(candidate))
	if err != nil || len(data) < splMintAccountSize {
		return 100, false
	}

	mintAuthoritySet := binary.LittleEndian.Uint32(data[0:4]) != 0
	freezeAuthoritySet := binary.LittleEndian.Uint32(data[46:50]) != 0

	report.OwnershipRenounced = !mintAuthoritySet && !freezeAuthoritySet
	if report.OwnershipRenounced {
		return 0, true
	}

	report.Reasons = append(report.Reasons, "mint or freeze authority still held")
	return 70, true
}

// checkBlacklist flags mints carrying data beyond the plain SPL layout,
// which is where transfer hooks and blacklist extensions live.
func (a *SafetyAgent) checkBlacklist(candidate types.PoolCandidate, report *types.SafetyReport) (int, bool) {
	data, err := a.chain.GetAccountData(poolMint(candidate))
	if err != nil {
		return 100, false
	}

	if len(data) > splMintAccountSize {
		report.BlacklistFunctionPresent = true
		report.Reasons = append(report.Reasons, "mint carries token extensions")
		return 100, true
	}
	return 0, true
}

func weightedScore(w config.SafetyWeights, liquidity, ownership, honeypot, tax, blacklist int) int {
	total := w.Liquidity + w.Ownership + w.Honeypot + w.Tax + w.Blacklist
	if total == 0 {
		return 0
	}
	sum := w.Liquidity*liquidity + w.Ownership*ownership + w.Honeypot*honeypot + w.Tax*tax + w.Blacklist*blacklist
	return sum / total
}

func poolMint(candidate types.PoolCandidate) solana.PublicKey {
	if candidate.TokenA == config.WRAPPED_SOL {
		return candidate.TokenB
	}
	return candidate.TokenA
}

func bpsOf(part, whole *big.Int) uint64 {
	if whole == nil || whole.Sign() == 0 {
		return 0
	}
	out := new(big.Int).Mul(part, big.NewInt(10000))
	out.Quo(out, whole)
	return out.Uint64()
}
