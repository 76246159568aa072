package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/iqbalbaharum/go-pool-sniper/internal/adapter"
	"github.com/iqbalbaharum/go-pool-sniper/internal/agent"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
	db "github.com/iqbalbaharum/go-pool-sniper/internal/database"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/handler"
	"github.com/iqbalbaharum/go-pool-sniper/internal/instructions"
	"github.com/iqbalbaharum/go-pool-sniper/internal/liquidity"
	"github.com/iqbalbaharum/go-pool-sniper/internal/rpc"
	"github.com/iqbalbaharum/go-pool-sniper/internal/storage"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.InitEnv()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := adapter.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	mysqlClient, err := adapter.NewMySQLClient(cfg.MySqlDsn)
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if err := db.NewDatabase(mysqlClient, cfg.MySqlDbName).CreateDatabaseAndTable(); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	store := storage.New(mysqlClient, redisClient, cfg.DedupWindowSec)

	rpcClient := rpc.NewClient(cfg.RpcHttpUrl)
	wsRpc, err := rpc.NewWsRpc(cfg.RpcWsUrl, logger)
	if err != nil {
		return fmt.Errorf("ws rpc: %w", err)
	}
	defer wsRpc.Close()
	submitter := rpc.NewSubmitter(cfg, rpcClient)

	grpcClient, err := generators.GrpcConnect(cfg.GrpcAddr, cfg.GrpcInsecure, logger)
	if err != nil {
		return fmt.Errorf("geyser: %w", err)
	}
	defer grpcClient.CloseConnection()

	pools := liquidity.NewService(rpcClient, store)
	reserveSource := agent.NewChainReserveSource(rpcClient, pools)
	builder := instructions.NewBuilder(config.Payer)

	b := bus.New(1000, logger)

	watched := []string{
		config.RAYDIUM_AMM_V4.String(),
		config.PUMP_FUN_PROGRAM.String(),
	}

	pendingCh := make(chan generators.GeyserResponse, 1024)
	confirmedCh := make(chan generators.GeyserResponse, 1024)
	go streamTransactions(ctx, grpcClient, cfg, "pending", generators.CommitmentProcessed, watched, pendingCh, logger)
	go streamTransactions(ctx, grpcClient, cfg, "confirmed", generators.CommitmentConfirmed, watched, confirmedCh, logger)

	reorgCh := make(chan types.ReorgNotice, 16)
	if err := wsRpc.SubscribeReorgs(reorgCh); err != nil {
		return fmt.Errorf("reorg subscription: %w", err)
	}

	mempool := agent.NewMempoolAgent(b, logger, pendingCh)
	detector := agent.NewDetectorAgent(b, logger, rpcClient, pools, store.Dedup, store.Tracked, store.Trade,
		cfg.DedupWindowSec, confirmedCh, reorgCh)
	safety := agent.NewSafetyAgent(b, logger, rpcClient, reserveSource, cfg.Trading, cfg.Weights, cfg.SolPriceUsd)
	sniper := agent.NewSniperAgent(b, logger, rpcClient, builder, submitter, reserveSource, pools,
		store.Position, store.Tracked, cfg.Trading, cfg.SolPriceUsd)
	coordinator := agent.NewCoordinatorAgent(b, logger, store.Trade)

	coordinator.Start()
	mempool.Start(ctx)
	detector.Start(ctx)
	safety.Start(ctx)
	if err := sniper.Start(ctx); err != nil {
		return fmt.Errorf("sniper: %w", err)
	}

	// Late confirmations of our own submissions arrive on the log stream;
	// hand them to the sniper for reconciliation.
	if config.Payer != nil {
		logCh := make(chan types.LogEvent, 256)
		if err := wsRpc.SubscribeToLogs(config.Payer.PublicKey().String(), logCh); err != nil {
			return fmt.Errorf("log subscription: %w", err)
		}
		go func() {
			for event := range logCh {
				if !event.Failed {
					sniper.ReconcileConfirmation(event.Signature)
				}
			}
		}()
	}

	server := handler.NewServer(b, coordinator, store.Position, store.Trade, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: server.CreateRoutes(),
	}

	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	logger.Info("sniper started",
		zap.Bool("simulation", cfg.Trading.SimulationMode),
		zap.String("submitter", cfg.Submitter),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// streamTransactions keeps one geyser subscription alive, reconnecting with
// backoff until the context ends.
func streamTransactions(
	ctx context.Context,
	client *generators.GrpcClient,
	cfg *config.Config,
	sourceName string,
	commitment generators.CommitmentLevel,
	addresses []string,
	txChannel chan generators.GeyserResponse,
	logger *zap.Logger,
) {
	for {
		err := client.GrpcSubscribeByAddresses(ctx, sourceName, cfg.GrpcToken, commitment, addresses, nil, txChannel)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("geyser stream ended, reconnecting",
			zap.String("source", sourceName),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}
