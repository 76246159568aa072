package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

var (
	WRAPPED_SOL       = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	RAYDIUM_AMM_V4    = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OPENBOOK_ID       = solana.MustPublicKeyFromBase58("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	RAYDIUM_AUTHORITY = solana.MustPublicKeyFromBase58("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	PUMP_FUN_PROGRAM  = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PUMP_FEE_WALLET   = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	COMPUTE_PROGRAM   = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
	TRANSFER_PROGRAM  = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	JITO_TIP_ACCOUNT  = solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5")
	BLOXROUTE_TIP     = solana.MustPublicKeyFromBase58("HWEoBxYs7ssKuudEjzjmpfJVX7Dvi7wescFsVx2L5yoY")

	LAMPORTS_PER_SOL = uint64(1000000000)
	TA_RENT_LAMPORTS = uint64(2039280)
	TA_SIZE          = uint64(165)
)

// RaydiumFeeBps is the AMM v4 swap fee tier.
const RaydiumFeeBps = uint16(25)

// Bonding curve defaults from the pump-style launchpad program.
const (
	DefaultVirtualSolReserves   = uint64(30_000_000_000)
	DefaultVirtualTokenReserves = uint64(1_073_000_000_000_000)
	DefaultCurveFeeBps          = uint64(100)
	GraduationSolThreshold      = uint64(85_000_000_000)
)

// TradingParams gates every fund-moving decision. Read by the safety and
// sniper agents; mutated only by operator command through the coordinator.
type TradingParams struct {
	SlippageBps            uint64
	PriorityFee            uint64 // micro-lamports per compute unit
	MaxPositionSize        uint64 // lamports per snipe
	MinLiquidityUsd        float64
	MaxBuyTaxBps           uint64
	MaxSellTaxBps          uint64
	MaxConcurrentPositions int
	RiskThreshold          int
	AutoExitMultiple       float64 // sell when price reaches entry*multiple, 0 disables
	SellRetryLimit         int
	SimulationMode         bool
}

// SafetyWeights drives the weighted risk score. Values are relative weights,
// normalized by their sum.
type SafetyWeights struct {
	Liquidity int
	Ownership int
	Honeypot  int
	Tax       int
	Blacklist int
}

type Config struct {
	PayerPrivateKey string
	GrpcAddr        string
	GrpcToken       string
	GrpcInsecure    bool
	RpcHttpUrl      string
	RpcWsUrl        string
	JitoUrl         string
	BloxRouteUrl    string
	BloxRouteToken  string
	Submitter       string // "rpc" | "jito" | "bloxroute"
	RedisAddr       string
	RedisPassword   string
	MySqlDsn        string
	MySqlDbName     string
	Port            int
	SolPriceUsd     float64
	DedupWindowSec  int
	Trading         TradingParams
	Weights         SafetyWeights
}

var Payer *solana.Wallet

// InitEnv loads .env and parses the full runtime configuration. A missing
// payer key is fatal unless SIMULATION_MODE is on.
func InitEnv() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		GrpcAddr:       os.Getenv("GRPC_ENDPOINT"),
		GrpcToken:      os.Getenv("GRPC_TOKEN"),
		GrpcInsecure:   os.Getenv("GRPC_INSECURE") == "true",
		RpcHttpUrl:     os.Getenv("RPC_HTTP_URL"),
		RpcWsUrl:       os.Getenv("RPC_WS_URL"),
		JitoUrl:        os.Getenv("JITO_URL"),
		BloxRouteUrl:   os.Getenv("BLOXROUTE_URL"),
		BloxRouteToken: os.Getenv("BLOXROUTE_TOKEN"),
		Submitter:      envString("SUBMITTER", "rpc"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MySqlDsn:       os.Getenv("MYSQL_DSN"),
		MySqlDbName:    envString("MYSQL_DB_NAME", "sniper"),
		Port:           envInt("PORT", 5000),
		SolPriceUsd:    envFloat("SOL_PRICE_USD", 150),
		DedupWindowSec: envInt("DEDUP_WINDOW_SEC", 600),
		Trading: TradingParams{
			SlippageBps:            envUint64("SLIPPAGE_BPS", 500),
			PriorityFee:            envUint64("PRIORITY_FEE", 100_000),
			MaxPositionSize:        envUint64("MAX_POSITION_SIZE", 100_000_000),
			MinLiquidityUsd:        envFloat("MIN_LIQUIDITY_USD", 1000),
			MaxBuyTaxBps:           envUint64("MAX_BUY_TAX_BPS", 1000),
			MaxSellTaxBps:          envUint64("MAX_SELL_TAX_BPS", 1000),
			MaxConcurrentPositions: envInt("MAX_CONCURRENT_POSITIONS", 3),
			RiskThreshold:          envInt("RISK_THRESHOLD", 50),
			AutoExitMultiple:       envFloat("AUTO_EXIT_MULTIPLE", 2),
			SellRetryLimit:         envInt("SELL_RETRY_LIMIT", 3),
			SimulationMode:         os.Getenv("SIMULATION_MODE") == "true",
		},
		Weights: SafetyWeights{
			Liquidity: envInt("WEIGHT_LIQUIDITY", 20),
			Ownership: envInt("WEIGHT_OWNERSHIP", 20),
			Honeypot:  envInt("WEIGHT_HONEYPOT", 30),
			Tax:       envInt("WEIGHT_TAX", 20),
			Blacklist: envInt("WEIGHT_BLACKLIST", 10),
		},
	}

	key := os.Getenv("PAYER_PRIVATE_KEY")
	if key != "" {
		pay, err := solana.WalletFromPrivateKeyBase58(key)
		if err != nil {
			return nil, fmt.Errorf("invalid PAYER_PRIVATE_KEY: %w", err)
		}
		Payer = pay
	} else if !cfg.Trading.SimulationMode {
		return nil, fmt.Errorf("PAYER_PRIVATE_KEY is required unless SIMULATION_MODE=true")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}
