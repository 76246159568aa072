package agent

import (
	"context"
	"errors"

	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

// MempoolAgent drains the pending-transaction stream, decodes call data for
// the programs it cares about and publishes lightweight CandidateSeen
// messages. It holds no state beyond the current decode, so bursts cost
// nothing but CPU.
type MempoolAgent struct {
	bus       *bus.MessageBus
	logger    *zap.Logger
	stream    <-chan generators.GeyserResponse
	raydium   *coder.RaydiumAmmInstructionCoder
	launchpad *coder.PumpInstructionCoder
}

func NewMempoolAgent(b *bus.MessageBus, logger *zap.Logger, stream <-chan generators.GeyserResponse) *MempoolAgent {
	return &MempoolAgent{
		bus:       b,
		logger:    logger.Named("mempool"),
		stream:    stream,
		raydium:   coder.NewRaydiumAmmInstructionCoder(),
		launchpad: coder.NewPumpInstructionCoder(),
	}
}

func (a *MempoolAgent) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case resp, ok := <-a.stream:
				if !ok {
					a.logger.Warn("pending-transaction stream closed")
					return
				}
				a.process(resp.MempoolTxns)
			}
		}
	}()
}

func (a *MempoolAgent) process(tx generators.MempoolTxn) {
	for _, ix := range tx.Instructions {
		if int(ix.ProgramIdIndex) >= len(tx.AccountKeys) {
			// Program resolved through a lookup table; not a router we track.
			continue
		}
		programID := tx.AccountKeys[ix.ProgramIdIndex]

		name, err := a.classify(programID, ix.Data)
		if err != nil {
			if !errors.Is(err, coder.ErrUnknownInstruction) {
				a.logger.Debug("instruction decode failed",
					zap.String("signature", tx.Signature),
					zap.Error(err))
			}
			continue
		}
		if name == "" {
			continue
		}

		a.bus.Broadcast(types.AgentMempool, types.CandidateSeen{
			Signature:   tx.Signature,
			ProgramID:   programID,
			Instruction: name,
			Slot:        tx.Slot,
		})
	}
}

// classify names the instruction when it belongs to a tracked program, and
// returns empty for programs or calls we ignore.
func (a *MempoolAgent) classify(programID string, data []byte) (string, error) {
	switch programID {
	case config.RAYDIUM_AMM_V4.String():
		decoded, err := a.raydium.Decode(data)
		if err != nil {
			return "", err
		}
		switch decoded.(type) {
		case coder.Initialize2:
			return "initialize2", nil
		case coder.SwapBaseIn:
			return "swap_base_in", nil
		case coder.SwapBaseOut:
			return "swap_base_out", nil
		case coder.Withdraw:
			return "withdraw", nil
		}
		return "", nil

	case config.PUMP_FUN_PROGRAM.String():
		decoded, err := a.launchpad.Decode(data)
		if err != nil {
			return "", err
		}
		switch decoded.(type) {
		case coder.PumpCreate:
			return "create", nil
		case coder.PumpBuy:
			return "buy", nil
		case coder.PumpSell:
			return "sell", nil
		}
		return "", nil
	}

	return "", nil
}
