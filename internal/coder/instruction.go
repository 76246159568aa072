package coder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnknownInstruction marks call data that belongs to no supported layout.
// Decode failures are never fatal; callers log and drop.
var ErrUnknownInstruction = errors.New("coder: unknown instruction")

// Anchor discriminators of the pump launchpad program.
var (
	PumpCreateDiscriminator = [8]byte{24, 30, 200, 40, 5, 28, 7, 119}
	PumpBuyDiscriminator    = [8]byte{102, 6, 61, 18, 1, 218, 235, 234}
	PumpSellDiscriminator   = [8]byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// RaydiumAmmInstructionCoder decodes Raydium AMM v4 call data.
type RaydiumAmmInstructionCoder struct{}

func NewRaydiumAmmInstructionCoder() *RaydiumAmmInstructionCoder {
	return &RaydiumAmmInstructionCoder{}
}

func (coder *RaydiumAmmInstructionCoder) Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, ErrUnknownInstruction
	}

	buf := bytes.NewReader(data[1:])
	switch data[0] {
	case 1:
		return decodeInitialize2(buf)
	case 4:
		return decodeWithdraw(buf)
	case 9:
		return decodeSwapBaseIn(buf)
	case 11:
		return decodeSwapBaseOut(buf)
	default:
		return nil, ErrUnknownInstruction
	}
}

func (coder *RaydiumAmmInstructionCoder) DecodeCompute(data []byte) (Compute, error) {
	var instruction Compute
	buf := bytes.NewReader(data)
	if err := binary.Read(buf, binary.LittleEndian, &instruction.Instruction); err != nil {
		return instruction, fmt.Errorf("compute: %w", err)
	}
	if err := binary.Read(buf, binary.LittleEndian, &instruction.Value); err != nil {
		return instruction, fmt.Errorf("compute: %w", err)
	}
	return instruction, nil
}

// PumpInstructionCoder decodes the launchpad program's anchor call data.
type PumpInstructionCoder struct{}

func NewPumpInstructionCoder() *PumpInstructionCoder {
	return &PumpInstructionCoder{}
}

func (coder *PumpInstructionCoder) Decode(data []byte) (interface{}, error) {
	if len(data) < 8 {
		return nil, ErrUnknownInstruction
	}

	var disc [8]byte
	copy(disc[:], data[:8])
	buf := bytes.NewReader(data[8:])

	switch disc {
	case PumpCreateDiscriminator:
		return decodePumpCreate(buf)
	case PumpBuyDiscriminator:
		var ix PumpBuy
		if err := binary.Read(buf, binary.LittleEndian, &ix); err != nil {
			return nil, fmt.Errorf("pump buy: %w", err)
		}
		return ix, nil
	case PumpSellDiscriminator:
		var ix PumpSell
		if err := binary.Read(buf, binary.LittleEndian, &ix); err != nil {
			return nil, fmt.Errorf("pump sell: %w", err)
		}
		return ix, nil
	default:
		return nil, ErrUnknownInstruction
	}
}

func decodeInitialize2(buf *bytes.Reader) (Initialize2, error) {
	var instruction Initialize2
	if err := binary.Read(buf, binary.LittleEndian, &instruction); err != nil {
		return instruction, fmt.Errorf("initialize2: %w", err)
	}
	return instruction, nil
}

func decodeWithdraw(buf *bytes.Reader) (Withdraw, error) {
	var instruction Withdraw
	if err := binary.Read(buf, binary.LittleEndian, &instruction); err != nil {
		return instruction, fmt.Errorf("withdraw: %w", err)
	}
	return instruction, nil
}

func decodeSwapBaseIn(buf *bytes.Reader) (SwapBaseIn, error) {
	var instruction SwapBaseIn
	if err := binary.Read(buf, binary.LittleEndian, &instruction); err != nil {
		return instruction, fmt.Errorf("swap base in: %w", err)
	}
	return instruction, nil
}

func decodeSwapBaseOut(buf *bytes.Reader) (SwapBaseOut, error) {
	var instruction SwapBaseOut
	if err := binary.Read(buf, binary.LittleEndian, &instruction); err != nil {
		return instruction, fmt.Errorf("swap base out: %w", err)
	}
	return instruction, nil
}

func decodePumpCreate(buf *bytes.Reader) (PumpCreate, error) {
	var ix PumpCreate
	var err error
	if ix.Name, err = readBorshString(buf); err != nil {
		return ix, fmt.Errorf("pump create: %w", err)
	}
	if ix.Symbol, err = readBorshString(buf); err != nil {
		return ix, fmt.Errorf("pump create: %w", err)
	}
	if ix.Uri, err = readBorshString(buf); err != nil {
		return ix, fmt.Errorf("pump create: %w", err)
	}
	if err = binary.Read(buf, binary.LittleEndian, &ix.VirtualSolReserves); err != nil {
		return ix, fmt.Errorf("pump create: %w", err)
	}
	if err = binary.Read(buf, binary.LittleEndian, &ix.VirtualTokenReserves); err != nil {
		return ix, fmt.Errorf("pump create: %w", err)
	}
	return ix, nil
}

func readBorshString(buf *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if int(length) > buf.Len() {
		return "", errors.New("string length exceeds remaining data")
	}
	out := make([]byte, length)
	if _, err := buf.Read(out); err != nil {
		return "", err
	}
	return string(out), nil
}
