package agent

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/instructions"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

// Shared stubs for the agent tests. Each one implements just enough of its
// interface to steer the path under test.

type stubChain struct {
	mu           sync.Mutex
	accountData  []byte
	accountErr   error
	curve        *types.BondingCurveState
	curveErr     error
	priorityFee  uint64
	confirmSeq   []rpc.ConfirmationStatus
	confirmErrs  []error
	confirmCalls int
}

func (s *stubChain) GetAccountData(solana.PublicKey) ([]byte, error) {
	return s.accountData, s.accountErr
}

func (s *stubChain) GetBondingCurveState(solana.PublicKey) (*types.BondingCurveState, error) {
	return s.curve, s.curveErr
}

func (s *stubChain) GetPriorityFee() (uint64, error) {
	return s.priorityFee, nil
}

func (s *stubChain) GetLatestBlockhash() (solana.Hash, error) {
	return solana.Hash{}, nil
}

func (s *stubChain) AwaitConfirmation(_ context.Context, _ string, _ time.Duration) (rpc.ConfirmationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.confirmCalls
	s.confirmCalls++
	if i < len(s.confirmSeq) {
		var err error
		if i < len(s.confirmErrs) {
			err = s.confirmErrs[i]
		}
		return s.confirmSeq[i], err
	}
	return rpc.Confirmed, nil
}

type stubReserves struct {
	reserves types.Reserves
	feeBps   uint64
	err      error
}

func (s *stubReserves) PoolReserves(context.Context, types.PoolCandidate) (types.Reserves, uint64, error) {
	if s.err != nil {
		return types.Reserves{}, 0, s.err
	}
	return s.reserves, s.feeBps, nil
}

type stubBuilder struct {
	payer solana.PublicKey
}

func (s *stubBuilder) Payer() solana.PublicKey { return s.payer }

func (s *stubBuilder) MakePumpSwapInstructions(solana.PublicKey, instructions.ComputeUnit, instructions.TxOption, uint64, uint64, string) ([]solana.Signature, *solana.Transaction, error) {
	return nil, &solana.Transaction{}, nil
}

func (s *stubBuilder) MakeSwapInstructions(*types.RaydiumPoolKeys, solana.PublicKey, instructions.ComputeUnit, instructions.TxOption, uint64, uint64, string) ([]solana.Signature, *solana.Transaction, error) {
	return nil, &solana.Transaction{}, nil
}

type stubSubmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSubmitter) Submit(*solana.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.calls++
	return fmt.Sprintf("sig-%d", s.calls), nil
}

type stubPositions struct {
	mu       sync.Mutex
	inserted []types.Position
	closed   []string
	failed   []string
	open     []types.Position
}

func (s *stubPositions) Insert(p *types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, *p)
	return nil
}

func (s *stubPositions) Close(id string, _ *big.Int, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
	return nil
}

func (s *stubPositions) Fail(id string, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, id)
	return nil
}

func (s *stubPositions) GetOpen() ([]types.Position, error) {
	return s.open, nil
}

func (s *stubPositions) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type stubTrades struct {
	mu     sync.Mutex
	trades []types.Trade
}

func (s *stubTrades) SetTrade(trade *types.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, *trade)
	return nil
}

type stubTracked struct {
	mu    sync.Mutex
	flags map[string]bool
}

func (s *stubTracked) SetTracked(_ context.Context, poolAddress string, tracked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.flags[poolAddress] = tracked
	return nil
}

func (s *stubTracked) GetTracked(_ context.Context, poolAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[poolAddress], nil
}

type stubDedup struct {
	mu        sync.Mutex
	seen      map[string]bool
	forgotten []string
}

func (s *stubDedup) MarkSeen(_ context.Context, poolAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[poolAddress] {
		return false, nil
	}
	s.seen[poolAddress] = true
	return true, nil
}

func (s *stubDedup) Forget(_ context.Context, poolAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, poolAddress)
	s.forgotten = append(s.forgotten, poolAddress)
	return nil
}

func big1() *big.Int {
	return big.NewInt(1)
}

type stubKeys struct {
	keys *types.RaydiumPoolKeys
	err  error
}

func (s *stubKeys) GetPoolKeys(context.Context, *solana.PublicKey) (*types.RaydiumPoolKeys, error) {
	return s.keys, s.err
}
