package agent

import (
	"encoding/binary"
	"testing"

	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMempoolClassifiesTrackedInstructions(t *testing.T) {
	b := bus.New(100, nil)
	agent := NewMempoolAgent(b, zap.NewNop(), nil)

	swapData := make([]byte, 17)
	swapData[0] = 9 // swap base in
	binary.LittleEndian.PutUint64(swapData[1:], 1_000_000)

	tx := generators.MempoolTxn{
		Signature:   "sig-1",
		Slot:        42,
		AccountKeys: []string{config.RAYDIUM_AMM_V4.String(), config.PUMP_FUN_PROGRAM.String()},
		Instructions: []generators.TxInstruction{
			{ProgramIdIndex: 0, Data: swapData},
			{ProgramIdIndex: 1, Data: append(coder.PumpBuyDiscriminator[:], make([]byte, 16)...)},
		},
	}
	agent.process(tx)

	seen := b.MessagesByType(types.MsgCandidateSeen)
	require.Len(t, seen, 2)

	first := seen[0].Payload.(types.CandidateSeen)
	assert.Equal(t, "swap_base_in", first.Instruction)
	assert.Equal(t, config.RAYDIUM_AMM_V4.String(), first.ProgramID)
	assert.Equal(t, uint64(42), first.Slot)

	second := seen[1].Payload.(types.CandidateSeen)
	assert.Equal(t, "buy", second.Instruction)
}

func TestMempoolIgnoresForeignProgramsAndLookupIndexes(t *testing.T) {
	b := bus.New(100, nil)
	agent := NewMempoolAgent(b, zap.NewNop(), nil)

	tx := generators.MempoolTxn{
		Signature:   "sig-1",
		AccountKeys: []string{config.TRANSFER_PROGRAM.String()},
		Instructions: []generators.TxInstruction{
			{ProgramIdIndex: 0, Data: []byte{2, 0, 0, 0}},
			// Program behind an address lookup table.
			{ProgramIdIndex: 7, Data: []byte{9}},
		},
	}
	agent.process(tx)

	assert.Empty(t, b.MessagesByType(types.MsgCandidateSeen))
}
