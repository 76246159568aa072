package pricing

import (
	"errors"
	"math/big"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

// Constant-product quoting against a reserve snapshot. Everything that gates
// fund movement stays in big.Int; floats appear only in display percentages.

var (
	ErrInvalidReserves = errors.New("pricing: reserves must be non-negative and non-nil")
	ErrNonPositiveIn   = errors.New("pricing: amount in must be positive")
	ErrEmptyPool       = errors.New("pricing: pool has no liquidity")
)

var bpsDenominator = big.NewInt(10000)

// BuyQuote sizes a quote-currency (SOL) buy against the curve.
type BuyQuote struct {
	AmountIn         *big.Int
	Fee              *big.Int
	AmountInAfterFee *big.Int
	TokensOut        *big.Int
	NewReserves      types.Reserves
	PriceImpactPct   float64
}

// SellQuote sizes a token sell. Fee is taken from the gross SOL output.
type SellQuote struct {
	TokensIn    *big.Int
	SolOutGross *big.Int
	Fee         *big.Int
	SolOutNet   *big.Int
	NewReserves types.Reserves
}

// CalculateBuyReturn computes tokensOut = reserveB - ceil(k / (reserveA + amountInAfterFee)).
// The reserve kept by the pool rounds up so the curve invariant never
// decreases across the trade.
func CalculateBuyReturn(r types.Reserves, amountIn *big.Int, feeBps uint64) (*BuyQuote, error) {
	if !r.Valid() {
		return nil, ErrInvalidReserves
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrNonPositiveIn
	}
	if r.ReserveA.Sign() == 0 || r.ReserveB.Sign() == 0 {
		return nil, ErrEmptyPool
	}

	fee := mulBps(amountIn, feeBps)
	afterFee := new(big.Int).Sub(amountIn, fee)
	if afterFee.Sign() <= 0 {
		return nil, ErrNonPositiveIn
	}

	k := r.K()
	newA := new(big.Int).Add(r.ReserveA, afterFee)
	newB := ceilDiv(k, newA)
	tokensOut := new(big.Int).Sub(r.ReserveB, newB)
	if tokensOut.Sign() < 0 {
		tokensOut.SetInt64(0)
	}

	return &BuyQuote{
		AmountIn:         new(big.Int).Set(amountIn),
		Fee:              fee,
		AmountInAfterFee: afterFee,
		TokensOut:        tokensOut,
		NewReserves:      types.Reserves{ReserveA: newA, ReserveB: newB},
		PriceImpactPct:   priceImpact(r, afterFee, tokensOut),
	}, nil
}

// CalculateSellReturn computes solOut = reserveA - ceil(k / (reserveB + tokensIn)),
// then takes the fee from the output, matching the launchpad program.
func CalculateSellReturn(r types.Reserves, tokensIn *big.Int, feeBps uint64) (*SellQuote, error) {
	if !r.Valid() {
		return nil, ErrInvalidReserves
	}
	if tokensIn == nil || tokensIn.Sign() <= 0 {
		return nil, ErrNonPositiveIn
	}
	if r.ReserveA.Sign() == 0 || r.ReserveB.Sign() == 0 {
		return nil, ErrEmptyPool
	}

	k := r.K()
	newB := new(big.Int).Add(r.ReserveB, tokensIn)
	newA := ceilDiv(k, newB)
	gross := new(big.Int).Sub(r.ReserveA, newA)
	if gross.Sign() < 0 {
		gross.SetInt64(0)
	}
	fee := mulBps(gross, feeBps)
	net := new(big.Int).Sub(gross, fee)

	return &SellQuote{
		TokensIn:    new(big.Int).Set(tokensIn),
		SolOutGross: gross,
		Fee:         fee,
		SolOutNet:   net,
		NewReserves: types.Reserves{ReserveA: newA, ReserveB: newB},
	}, nil
}

// MinAmountOut applies the slippage bound: amount * (10000 - slippageBps) / 10000.
func MinAmountOut(amount *big.Int, slippageBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	if slippageBps >= 10000 {
		return big.NewInt(0)
	}
	keep := new(big.Int).SetUint64(10000 - slippageBps)
	out := new(big.Int).Mul(amount, keep)
	return out.Div(out, bpsDenominator)
}

// CurrentPrice returns lamports per token scaled by 1e9, the launchpad's
// display price.
func CurrentPrice(r types.Reserves) *big.Int {
	if !r.Valid() || r.ReserveB.Sign() == 0 {
		return big.NewInt(0)
	}
	price := new(big.Int).Mul(r.ReserveA, big.NewInt(1_000_000_000))
	return price.Div(price, r.ReserveB)
}

// MarketCap returns price * totalSupply / 1e9 in lamports. Display only.
func MarketCap(r types.Reserves, totalSupply *big.Int) *big.Int {
	if totalSupply == nil {
		return big.NewInt(0)
	}
	cap := new(big.Int).Mul(CurrentPrice(r), totalSupply)
	return cap.Div(cap, big.NewInt(1_000_000_000))
}

func mulBps(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Div(out, bpsDenominator)
}

func ceilDiv(a, b *big.Int) *big.Int {
	out, rem := new(big.Int).DivMod(a, b, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// priceImpact is the percent shortfall of the executed price against the spot
// price. Informational only.
func priceImpact(r types.Reserves, afterFee, tokensOut *big.Int) float64 {
	if afterFee.Sign() == 0 || r.ReserveA.Sign() == 0 {
		return 0
	}
	spot := new(big.Float).Quo(
		new(big.Float).SetInt(new(big.Int).Mul(afterFee, r.ReserveB)),
		new(big.Float).SetInt(r.ReserveA),
	)
	actual := new(big.Float).SetInt(tokensOut)
	spotF, _ := spot.Float64()
	actualF, _ := actual.Float64()
	if spotF == 0 {
		return 0
	}
	return (spotF - actualF) / spotF * 100
}
