package liquidity

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/storage"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

// Service resolves pool accounts, caching chain lookups in redis.
type Service struct {
	rpcClient *rpc.Client
	store     *storage.Storage
}

func NewService(rpcClient *rpc.Client, store *storage.Storage) *Service {
	return &Service{
		rpcClient: rpcClient,
		store:     store,
	}
}

// GetPoolKeys returns pool keys from cache if available, otherwise fetches
// from RPC and caches.
func (s *Service) GetPoolKeys(ctx context.Context, ammId *solana.PublicKey) (*types.RaydiumPoolKeys, error) {
	storedPoolKey, err := s.store.PoolKeys.GetPoolKeys(ctx, ammId)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if storedPoolKey != nil && !storedPoolKey.ID.IsZero() {
		return storedPoolKey, nil
	}

	state, err := s.rpcClient.GetLiquidityState(*ammId)
	if err != nil {
		return nil, err
	}

	authority, err := getAssociatedAuthority(config.RAYDIUM_AMM_V4)
	if err != nil {
		return nil, err
	}

	pKey := &types.RaydiumPoolKeys{
		ID:                 *ammId,
		BaseMint:           state.BaseMint,
		QuoteMint:          state.QuoteMint,
		LpMint:             state.LpMint,
		BaseDecimals:       int(state.BaseDecimal),
		QuoteDecimals:      int(state.QuoteDecimal),
		Authority:          authority,
		OpenOrders:         state.OpenOrders,
		TargetOrders:       state.TargetOrders,
		BaseVault:          state.BaseVault,
		QuoteVault:         state.QuoteVault,
		Version:            3,
		FeeBps:             state.FeeBps(),
		MarketProgramID:    state.MarketProgramId,
		MarketID:           state.MarketId,
		MarketAuthority:    authority,
		WithdrawQueue:      state.WithdrawQueue,
		LpVault:            state.LpVault,
		LookupTableAccount: solana.PublicKey{},
	}

	marketInfo, err := s.rpcClient.GetMarketState(state.MarketId)
	if err != nil {
		return nil, err
	}

	pKey.MarketBaseVault = marketInfo.BaseVault
	pKey.MarketQuoteVault = marketInfo.QuoteVault
	pKey.MarketBids = marketInfo.Bids
	pKey.MarketAsks = marketInfo.Asks
	pKey.MarketEventQueue = marketInfo.EventQueue

	if err := s.store.PoolKeys.SetPoolKeys(ctx, pKey); err != nil {
		return nil, err
	}

	return pKey, nil
}

// GetPoolSolBalance reads the SOL side vault balance in lamports.
func (s *Service) GetPoolSolBalance(pKey *types.RaydiumPoolKeys) (uint64, error) {
	_, swap, err := GetMint(pKey)
	if err != nil {
		return 0, err
	}

	if !swap {
		return s.rpcClient.GetBalance(pKey.QuoteVault)
	}
	return s.rpcClient.GetBalance(pKey.BaseVault)
}

// GetMint returns the non-SOL mint and whether base/quote are reversed.
func GetMint(pKey *types.RaydiumPoolKeys) (solana.PublicKey, bool, error) {
	if pKey.BaseMint == config.WRAPPED_SOL {
		return pKey.QuoteMint, true, nil
	}
	if pKey.QuoteMint == config.WRAPPED_SOL {
		return pKey.BaseMint, false, nil
	}
	return solana.PublicKey{}, false, errors.New("neither BaseMint nor QuoteMint is WRAPPED_SOL")
}

func getAssociatedAuthority(programId solana.PublicKey) (solana.PublicKey, error) {
	seed := []byte("amm authority")
	programAddress, _, err := solana.FindProgramAddress([][]byte{seed}, programId)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return programAddress, nil
}
