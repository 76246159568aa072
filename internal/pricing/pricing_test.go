package pricing

import (
	"math/big"
	"testing"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Launchpad defaults: 30 SOL virtual, ~1.073B tokens (6 decimals), 1% fee.
func curveReserves() types.Reserves {
	return types.NewReserves(30_000_000_000, 1_073_000_000_000_000)
}

func TestBuyReturnExactScenario(t *testing.T) {
	r := curveReserves()

	quote, err := CalculateBuyReturn(r, big.NewInt(1_000_000_000), 100)
	require.NoError(t, err)

	assert.Equal(t, "10000000", quote.Fee.String())
	assert.Equal(t, "990000000", quote.AmountInAfterFee.String())
	assert.Equal(t, "34277831558567", quote.TokensOut.String())
	assert.Equal(t, "30990000000", quote.NewReserves.ReserveA.String())

	// Output must never reach the virtual token reserve.
	assert.Equal(t, -1, quote.TokensOut.Cmp(r.ReserveB))
}

func TestRoundTripNeverProfits(t *testing.T) {
	cases := []struct {
		name     string
		amountIn int64
		feeBps   uint64
	}{
		{"one sol one percent", 1_000_000_000, 100},
		{"small trade", 1_000_000, 100},
		{"large trade", 50_000_000_000, 100},
		{"zero fee", 1_000_000_000, 0},
		{"high fee", 1_000_000_000, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := curveReserves()
			amountIn := big.NewInt(tc.amountIn)

			buy, err := CalculateBuyReturn(r, amountIn, tc.feeBps)
			require.NoError(t, err)
			require.Positive(t, buy.TokensOut.Sign())

			sell, err := CalculateSellReturn(buy.NewReserves, buy.TokensOut, tc.feeBps)
			require.NoError(t, err)

			// Fees and rounding strictly reduce round-trip value.
			assert.LessOrEqual(t, sell.SolOutNet.Cmp(amountIn), 0,
				"round trip returned %s for %s in", sell.SolOutNet, amountIn)
		})
	}
}

func TestInvariantNeverDecreases(t *testing.T) {
	r := curveReserves()
	k := r.K()

	buy, err := CalculateBuyReturn(r, big.NewInt(777_777_777), 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, buy.NewReserves.K().Cmp(k), 0)

	sell, err := CalculateSellReturn(buy.NewReserves, buy.TokensOut, 100)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sell.NewReserves.K().Cmp(buy.NewReserves.K()), 0)
}

func TestBuyRejectsBadInput(t *testing.T) {
	r := curveReserves()

	_, err := CalculateBuyReturn(r, big.NewInt(0), 100)
	assert.ErrorIs(t, err, ErrNonPositiveIn)

	_, err = CalculateBuyReturn(r, big.NewInt(-5), 100)
	assert.ErrorIs(t, err, ErrNonPositiveIn)

	_, err = CalculateBuyReturn(types.Reserves{}, big.NewInt(1), 100)
	assert.ErrorIs(t, err, ErrInvalidReserves)

	_, err = CalculateBuyReturn(types.NewReserves(0, 1000), big.NewInt(1), 100)
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestMinAmountOut(t *testing.T) {
	out := MinAmountOut(big.NewInt(34_277_831_558_567), 500)
	assert.Equal(t, "32563939980638", out.String())

	assert.Equal(t, "0", MinAmountOut(big.NewInt(100), 10000).String())
	assert.Equal(t, "100", MinAmountOut(big.NewInt(100), 0).String())
	assert.Equal(t, "0", MinAmountOut(nil, 100).String())
}

func TestCurrentPriceAndMarketCap(t *testing.T) {
	r := curveReserves()

	// 30e9 * 1e9 / 1.073e15 = 27958 lamports per token unit (scaled 1e9).
	assert.Equal(t, "27958", CurrentPrice(r).String())

	supply := new(big.Int).SetUint64(1_000_000_000_000_000)
	assert.Equal(t, "27958000000", MarketCap(r, supply).String())

	assert.Equal(t, "0", CurrentPrice(types.NewReserves(1, 0)).String())
}
