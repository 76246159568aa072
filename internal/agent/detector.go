package agent

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

// DedupStore is the cross-restart first-seen window. Nil disables the
// persistent layer; the in-memory window still applies.
type DedupStore interface {
	MarkSeen(ctx context.Context, poolAddress string) (bool, error)
	Forget(ctx context.Context, poolAddress string) error
}

// LookupResolver expands v0 address-table references. Nil limits decoding to
// the static account keys.
type LookupResolver interface {
	ResolveTableKeys(ctx context.Context, lookups []generators.TxAddressTableLookup) ([]string, error)
}

// TrackedReader answers whether a pool currently holds one of our positions,
// which is what gates third-party swap recording.
type TrackedReader interface {
	GetTracked(ctx context.Context, poolAddress string) (bool, error)
}

type detection struct {
	candidate types.PoolCandidate
	slot      uint64
	seenAt    time.Time
}

// DetectorAgent recognizes pool-initialization events on the confirmed
// stream and publishes NewPoolDetected once per pool per dedup window. A
// reorg notice retracts every detection whose confirming slot was
// invalidated. Swaps landing on tracked pools are written to the trade
// history.
type DetectorAgent struct {
	bus     *bus.MessageBus
	logger  *zap.Logger
	chain   ChainReader
	lookups LookupResolver
	dedup   DedupStore
	tracked TrackedReader
	trades  TradeStore
	window  time.Duration

	stream <-chan generators.GeyserResponse
	reorgs <-chan types.ReorgNotice

	raydium   *coder.RaydiumAmmInstructionCoder
	launchpad *coder.PumpInstructionCoder

	mu sync.Mutex
	// recent is keyed by pool address; curveWatch by curve address, for
	// graduation checks on subsequent trades.
	recent     map[string]detection
	curveWatch map[string]types.PoolCandidate
}

func NewDetectorAgent(
	b *bus.MessageBus,
	logger *zap.Logger,
	chain ChainReader,
	lookups LookupResolver,
	dedup DedupStore,
	tracked TrackedReader,
	trades TradeStore,
	windowSec int,
	stream <-chan generators.GeyserResponse,
	reorgs <-chan types.ReorgNotice,
) *DetectorAgent {
	return &DetectorAgent{
		bus:        b,
		logger:     logger.Named("detector"),
		chain:      chain,
		lookups:    lookups,
		dedup:      dedup,
		tracked:    tracked,
		trades:     trades,
		window:     time.Duration(windowSec) * time.Second,
		stream:     stream,
		reorgs:     reorgs,
		raydium:    coder.NewRaydiumAmmInstructionCoder(),
		launchpad:  coder.NewPumpInstructionCoder(),
		recent:     make(map[string]detection),
		curveWatch: make(map[string]types.PoolCandidate),
	}
}

func (a *DetectorAgent) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-a.stream:
				if !ok {
					a.logger.Warn("confirmed stream closed")
					return
				}
				a.Process(ctx, resp.MempoolTxns)
			case notice, ok := <-a.reorgs:
				if !ok {
					return
				}
				a.HandleReorg(ctx, notice)
			}
		}
	}()
}

// Process scans one confirmed transaction for pool-creation instructions.
// Table-referenced keys are resolved first so v0 transactions decode with
// their full account list.
func (a *DetectorAgent) Process(ctx context.Context, tx generators.MempoolTxn) {
	if a.lookups != nil && len(tx.AddressTableLookups) > 0 {
		extended, err := a.lookups.ResolveTableKeys(ctx, tx.AddressTableLookups)
		if err != nil {
			a.logger.Debug("table lookup resolution failed",
				zap.String("signature", tx.Signature), zap.Error(err))
		} else {
			tx.AccountKeys = append(tx.AccountKeys, extended...)
		}
	}

	for _, ix := range tx.Instructions {
		if int(ix.ProgramIdIndex) >= len(tx.AccountKeys) {
			continue
		}
		programID := tx.AccountKeys[ix.ProgramIdIndex]

		switch programID {
		case config.RAYDIUM_AMM_V4.String():
			a.processRaydium(ctx, tx, ix)
		case config.PUMP_FUN_PROGRAM.String():
			a.processLaunchpad(ctx, tx, ix)
		}
	}
}

func (a *DetectorAgent) processRaydium(ctx context.Context, tx generators.MempoolTxn, ix generators.TxInstruction) {
	decoded, err := a.raydium.Decode(ix.Data)
	if err != nil {
		if !errors.Is(err, coder.ErrUnknownInstruction) {
			a.logger.Debug("raydium decode failed", zap.String("signature", tx.Signature), zap.Error(err))
		}
		return
	}

	switch swap := decoded.(type) {
	case coder.Initialize2:
		// initialize2 account layout: 4 amm, 8 coin mint, 9 pc mint.
		amm, okA := parseAccountAt(tx, ix, 4)
		coinMint, okB := parseAccountAt(tx, ix, 8)
		pcMint, okC := parseAccountAt(tx, ix, 9)
		if !okA || !okB || !okC {
			a.logger.Debug("initialize2 with short account list", zap.String("signature", tx.Signature))
			return
		}

		candidate := types.PoolCandidate{
			PoolAddress:     amm,
			TokenA:          coinMint,
			TokenB:          pcMint,
			FeeTierBps:      config.RaydiumFeeBps,
			Protocol:        types.ProtocolRaydiumV4,
			DetectedAtBlock: tx.Slot,
		}
		a.report(ctx, candidate)

	case coder.SwapBaseIn:
		a.recordAmmSwap(ctx, tx, ix, swap)
	}
}

// recordAmmSwap writes a third-party swap on a tracked AMM pool to the trade
// history. Direction and size come from the signer's token-balance movement;
// the instruction's AmountIn is the fallback when balances are missing.
func (a *DetectorAgent) recordAmmSwap(ctx context.Context, tx generators.MempoolTxn, ix generators.TxInstruction, swap coder.SwapBaseIn) {
	if a.tracked == nil || a.trades == nil {
		return
	}

	// swapBaseIn account layout: 1 amm; the user accounts shift by one when
	// the pool routes through an openbook market at 7.
	amm, ok := accountAt(tx, ix, 1)
	if !ok {
		return
	}
	followed, err := a.tracked.GetTracked(ctx, amm)
	if err != nil {
		a.logger.Debug("tracked lookup failed", zap.String("pool", amm), zap.Error(err))
		return
	}
	if !followed {
		return
	}

	signerIdx := 16
	if market, ok := accountAt(tx, ix, 7); ok && market == config.OPENBOOK_ID.String() {
		signerIdx = 17
	}
	signer, _ := accountAt(tx, ix, signerIdx)

	action := "buy"
	amount := new(big.Int).SetUint64(swap.AmountIn)
	mint, delta := tokenDelta(tx, signer)
	if delta != nil {
		if delta.Sign() < 0 {
			action = "sell"
		}
		amount.Abs(delta)
	}

	a.record(tx, amm, mint, action, amount.String(), signer)
}

func (a *DetectorAgent) processLaunchpad(ctx context.Context, tx generators.MempoolTxn, ix generators.TxInstruction) {
	decoded, err := a.launchpad.Decode(ix.Data)
	if err != nil {
		if !errors.Is(err, coder.ErrUnknownInstruction) {
			a.logger.Debug("launchpad decode failed", zap.String("signature", tx.Signature), zap.Error(err))
		}
		return
	}

	switch swap := decoded.(type) {
	case coder.PumpCreate:
		// create account layout: 1 mint, 3 bonding curve.
		mint, okA := parseAccountAt(tx, ix, 1)
		curve, okB := parseAccountAt(tx, ix, 3)
		if !okA || !okB {
			return
		}

		candidate := types.PoolCandidate{
			PoolAddress:     curve,
			TokenA:          config.WRAPPED_SOL,
			TokenB:          mint,
			FeeTierBps:      uint16(config.DefaultCurveFeeBps),
			Protocol:        types.ProtocolPumpCurve,
			DetectedAtBlock: tx.Slot,
		}
		a.report(ctx, candidate)

	case coder.PumpBuy:
		// buy/sell account layout: 1 mint, 2 bonding curve, 7 signer.
		curve, ok := accountAt(tx, ix, 2)
		if !ok {
			return
		}
		a.recordCurveSwap(ctx, tx, ix, curve, "buy", swap.SolAmount)
		a.checkGraduation(curve)

	case coder.PumpSell:
		curve, ok := accountAt(tx, ix, 2)
		if !ok {
			return
		}
		a.recordCurveSwap(ctx, tx, ix, curve, "sell", swap.TokenAmount)
	}
}

// recordCurveSwap writes a third-party trade on a tracked bonding curve. The
// instruction arguments carry the size directly: lamports in on a buy, tokens
// in on a sell.
func (a *DetectorAgent) recordCurveSwap(ctx context.Context, tx generators.MempoolTxn, ix generators.TxInstruction, curve, action string, amount uint64) {
	if a.tracked == nil || a.trades == nil {
		return
	}

	followed, err := a.tracked.GetTracked(ctx, curve)
	if err != nil {
		a.logger.Debug("tracked lookup failed", zap.String("pool", curve), zap.Error(err))
		return
	}
	if !followed {
		return
	}

	mint, _ := accountAt(tx, ix, 1)
	signer, _ := accountAt(tx, ix, 7)
	a.record(tx, curve, mint, action, new(big.Int).SetUint64(amount).String(), signer)
}

// record persists one observed swap with the compute budget its transaction
// set.
func (a *DetectorAgent) record(tx generators.MempoolTxn, pool, mint, action, amount, signer string) {
	status := "confirmed"
	if tx.Error != "" {
		status = "failed"
	}
	limit, price := computeBudget(a.raydium, tx)

	trade := &types.Trade{
		PoolAddress:  pool,
		Mint:         mint,
		Action:       action,
		Amount:       amount,
		Signature:    tx.Signature,
		ComputeLimit: limit,
		ComputePrice: price,
		Signer:       signer,
		Status:       status,
		Timestamp:    time.Now().Unix(),
	}
	if err := a.trades.SetTrade(trade); err != nil {
		a.logger.Error("trade record failed",
			zap.String("pool", pool),
			zap.String("signature", tx.Signature),
			zap.Error(err))
		return
	}

	a.logger.Debug("swap recorded",
		zap.String("pool", pool),
		zap.String("action", action),
		zap.String("signature", tx.Signature),
	)
}

// computeBudget extracts the unit limit and price from the transaction's
// ComputeBudget instructions: 2 sets the limit, 3 the price.
func computeBudget(c *coder.RaydiumAmmInstructionCoder, tx generators.MempoolTxn) (uint64, uint64) {
	var limit, price uint64
	for _, ix := range tx.Instructions {
		if int(ix.ProgramIdIndex) >= len(tx.AccountKeys) {
			continue
		}
		if tx.AccountKeys[ix.ProgramIdIndex] != config.COMPUTE_PROGRAM.String() {
			continue
		}
		compute, err := c.DecodeCompute(ix.Data)
		if err != nil {
			continue
		}
		switch compute.Instruction {
		case 2:
			limit = uint64(compute.Value)
		case 3:
			price = uint64(compute.Value)
		}
	}
	return limit, price
}

// tokenDelta finds how the signer's non-SOL token balance moved across the
// transaction. A positive delta means tokens were bought. Falls back to the
// first moving balance when the signer's own entry is absent.
func tokenDelta(tx generators.MempoolTxn, signer string) (string, *big.Int) {
	var fallbackMint string
	var fallback *big.Int

	for _, post := range tx.PostTokenBalances {
		if post.Mint == config.WRAPPED_SOL.String() {
			continue
		}
		after, ok := new(big.Int).SetString(post.Amount, 10)
		if !ok {
			continue
		}

		before := new(big.Int)
		for _, pre := range tx.PreTokenBalances {
			if pre.Mint == post.Mint && pre.Owner == post.Owner {
				if v, ok := new(big.Int).SetString(pre.Amount, 10); ok {
					before = v
				}
				break
			}
		}

		delta := new(big.Int).Sub(after, before)
		if delta.Sign() == 0 {
			continue
		}
		if post.Owner == signer {
			return post.Mint, delta
		}
		if fallback == nil {
			fallbackMint, fallback = post.Mint, delta
		}
	}
	return fallbackMint, fallback
}

// report publishes NewPoolDetected unless the pool already claimed its dedup
// slot inside the window.
func (a *DetectorAgent) report(ctx context.Context, candidate types.PoolCandidate) {
	pool := candidate.PoolAddress.String()

	a.mu.Lock()
	a.prune()
	if _, dup := a.recent[pool]; dup {
		a.mu.Unlock()
		return
	}
	a.recent[pool] = detection{candidate: candidate, slot: candidate.DetectedAtBlock, seenAt: time.Now()}
	if candidate.Protocol == types.ProtocolPumpCurve {
		a.curveWatch[pool] = candidate
	}
	a.mu.Unlock()

	if a.dedup != nil {
		fresh, err := a.dedup.MarkSeen(ctx, pool)
		if err != nil {
			a.logger.Warn("dedup store unavailable, relying on memory window", zap.Error(err))
		} else if !fresh {
			return
		}
	}

	a.logger.Info("new pool detected",
		zap.String("pool", pool),
		zap.String("protocol", string(candidate.Protocol)),
		zap.Uint64("slot", candidate.DetectedAtBlock),
	)
	a.bus.Broadcast(types.AgentDetector, types.NewPoolDetected{Candidate: candidate})
}

// checkGraduation reads the curve after a trade on a watched pool and
// announces the migration once the threshold is crossed.
func (a *DetectorAgent) checkGraduation(curve string) {
	a.mu.Lock()
	candidate, watched := a.curveWatch[curve]
	a.mu.Unlock()
	if !watched {
		return
	}

	state, err := a.chain.GetBondingCurveState(candidate.PoolAddress)
	if err != nil {
		a.logger.Debug("curve read failed", zap.String("curve", curve), zap.Error(err))
		return
	}

	if !state.Graduated && state.RealSolReserves < config.GraduationSolThreshold {
		return
	}

	a.mu.Lock()
	delete(a.curveWatch, curve)
	a.mu.Unlock()

	a.logger.Info("curve graduated",
		zap.String("curve", curve),
		zap.Uint64("realSol", state.RealSolReserves),
	)
	a.bus.Broadcast(types.AgentDetector, types.GraduationDetected{
		PoolAddress: curve,
		Mint:        candidate.TokenB.String(),
		RealSol:     state.RealSolReserves,
	})
}

// HandleReorg retracts every detection whose confirming slot falls inside
// the invalidated range and releases their dedup claims so the surviving
// fork can re-report them.
func (a *DetectorAgent) HandleReorg(ctx context.Context, notice types.ReorgNotice) {
	a.mu.Lock()
	var retracted []detection
	for pool, d := range a.recent {
		if d.slot >= notice.FromSlot && d.slot <= notice.ToSlot {
			retracted = append(retracted, d)
			delete(a.recent, pool)
			delete(a.curveWatch, pool)
		}
	}
	a.mu.Unlock()

	for _, d := range retracted {
		pool := d.candidate.PoolAddress.String()
		if a.dedup != nil {
			if err := a.dedup.Forget(ctx, pool); err != nil {
				a.logger.Warn("dedup release failed", zap.String("pool", pool), zap.Error(err))
			}
		}

		a.logger.Warn("pool detection retracted",
			zap.String("pool", pool),
			zap.Uint64("slot", d.slot),
		)
		a.bus.Broadcast(types.AgentDetector, types.PoolDetectionReverted{
			PoolAddress: pool,
			Slot:        d.slot,
		})
	}
}

// prune drops window-expired entries. Callers hold the lock.
func (a *DetectorAgent) prune() {
	cutoff := time.Now().Add(-a.window)
	for pool, d := range a.recent {
		if d.seenAt.Before(cutoff) {
			delete(a.recent, pool)
		}
	}
}

func accountAt(tx generators.MempoolTxn, ix generators.TxInstruction, idx int) (string, bool) {
	if idx >= len(ix.Accounts) {
		return "", false
	}
	keyIndex := int(ix.Accounts[idx])
	if keyIndex >= len(tx.AccountKeys) {
		return "", false
	}
	return tx.AccountKeys[keyIndex], true
}

func parseAccountAt(tx generators.MempoolTxn, ix generators.TxInstruction, idx int) (solana.PublicKey, bool) {
	raw, ok := accountAt(tx, ix, idx)
	if !ok {
		return solana.PublicKey{}, false
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, false
	}
	return key, true
}
