package coder

// Raydium AMM v4 instructions.

type Initialize2 struct {
	Nonce          byte
	OpenTime       uint64
	InitPcAmount   uint64
	InitCoinAmount uint64
}

type Withdraw struct {
	Amount uint64
}

type SwapBaseIn struct {
	AmountIn         uint64
	MinimumAmountOut uint64
}

type SwapBaseOut struct {
	MaxAmountIn uint64
	AmountOut   uint64
}

// Pump-style launchpad instructions (anchor, 8-byte discriminator).

type PumpCreate struct {
	Name                 string
	Symbol               string
	Uri                  string
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

type PumpBuy struct {
	SolAmount    uint64
	MinTokensOut uint64
}

type PumpSell struct {
	TokenAmount uint64
	MinSolOut   uint64
}

type Compute struct {
	Instruction uint8
	Value       uint32
}
