package agent

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/instructions"
	"github.com/iqbalbaharum/go-pool-sniper/internal/liquidity"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

// Agents share the bus as their only synchronization point; everything else
// they need from the outside world comes in through these interfaces so the
// chain and persistence collaborators can be stubbed in tests.

// ChainReader is the read side of the chain client agents depend on.
type ChainReader interface {
	GetAccountData(publicKey solana.PublicKey) ([]byte, error)
	GetBondingCurveState(curve solana.PublicKey) (*types.BondingCurveState, error)
	GetPriorityFee() (uint64, error)
	GetLatestBlockhash() (solana.Hash, error)
	AwaitConfirmation(ctx context.Context, signature string, timeout time.Duration) (rpc.ConfirmationStatus, error)
}

// TxBuilder assembles and signs swap transactions.
type TxBuilder interface {
	Payer() solana.PublicKey
	MakePumpSwapInstructions(mint solana.PublicKey, compute instructions.ComputeUnit, options instructions.TxOption, amountIn uint64, limit uint64, action string) ([]solana.Signature, *solana.Transaction, error)
	MakeSwapInstructions(poolKeys *types.RaydiumPoolKeys, wsolTokenAccount solana.PublicKey, compute instructions.ComputeUnit, options instructions.TxOption, amountIn uint64, minAmountOut uint64, action string) ([]solana.Signature, *solana.Transaction, error)
}

// ReserveSource snapshots a pool's reserves and fee tier at call time.
type ReserveSource interface {
	PoolReserves(ctx context.Context, candidate types.PoolCandidate) (types.Reserves, uint64, error)
}

// PositionStore is the persistent position record.
type PositionStore interface {
	Insert(p *types.Position) error
	Close(id string, exitPrice *big.Int, exitTxHash string, closedAt time.Time) error
	Fail(id string, reason string) error
	GetOpen() ([]types.Position, error)
}

// TradeStore records observed and executed swaps.
type TradeStore interface {
	SetTrade(trade *types.Trade) error
}

// chainReserveSource reads live reserves: the launchpad curve account for
// curve pools, vault balances for AMM pools.
type chainReserveSource struct {
	rpcClient *rpc.Client
	pools     *liquidity.Service
}

func NewChainReserveSource(rpcClient *rpc.Client, pools *liquidity.Service) ReserveSource {
	return &chainReserveSource{
		rpcClient: rpcClient,
		pools:     pools,
	}
}

func (s *chainReserveSource) PoolReserves(ctx context.Context, candidate types.PoolCandidate) (types.Reserves, uint64, error) {
	switch candidate.Protocol {
	case types.ProtocolPumpCurve:
		state, err := s.rpcClient.GetBondingCurveState(candidate.PoolAddress)
		if err != nil {
			return types.Reserves{}, 0, err
		}
		return types.NewReserves(state.VirtualSolReserves, state.VirtualTokenReserves), config.DefaultCurveFeeBps, nil

	case types.ProtocolRaydiumV4:
		pKey, err := s.pools.GetPoolKeys(ctx, &candidate.PoolAddress)
		if err != nil {
			return types.Reserves{}, 0, err
		}

		tokenVault := pKey.BaseVault
		if _, reverse, err := liquidity.GetMint(pKey); err != nil {
			return types.Reserves{}, 0, err
		} else if reverse {
			tokenVault = pKey.QuoteVault
		}

		solReserve, err := s.pools.GetPoolSolBalance(pKey)
		if err != nil {
			return types.Reserves{}, 0, err
		}
		tokenReserve, err := s.rpcClient.GetTokenAccountBalance(tokenVault)
		if err != nil {
			return types.Reserves{}, 0, err
		}

		// The cached keys carry the pool's own fee tier; older cache entries
		// predate the field and fall back to the detection-time tier.
		feeBps := uint64(pKey.FeeBps)
		if feeBps == 0 {
			feeBps = uint64(candidate.FeeTierBps)
		}
		return types.NewReserves(solReserve, tokenReserve), feeBps, nil

	default:
		return types.Reserves{}, 0, errors.New("unsupported protocol version")
	}
}

// liquidityUsd converts a lamport reserve to a display USD figure.
func liquidityUsd(solReserve *big.Int, solPriceUsd float64) float64 {
	if solReserve == nil {
		return 0
	}
	sol, _ := new(big.Float).Quo(
		new(big.Float).SetInt(solReserve),
		new(big.Float).SetUint64(config.LAMPORTS_PER_SOL),
	).Float64()
	return sol * solPriceUsd
}
