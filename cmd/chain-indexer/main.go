package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/db"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/indexer"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Require(map[string]string{
		"CHAIN_RPC_URL":    cfg.ChainRPCURL,
		"CONTRACT_ADDRESS": cfg.ContractAddress,
	}); err != nil {
		log.Fatal("chain indexer not configured", zap.Error(err))
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	eth, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
	if err != nil {
		log.Fatal("failed to dial chain rpc", zap.String("url", cfg.ChainRPCURL), zap.Error(err))
	}
	defer eth.Close()

	// read-only: no signer
	contract, err := chain.NewClient(eth, nil, cfg, log)
	if err != nil {
		log.Fatal("failed to init contract client", zap.Error(err))
	}

	ix := indexer.New(contract, rdb, events.NewRedisPublisher(rdb, log), cfg.IndexerStartBlock, log)
	if err := ix.InitCursor(ctx); err != nil {
		log.Fatal("failed to init cursor", zap.Error(err))
	}

	log.Info("chain indexer started",
		zap.String("contract", cfg.ContractAddress),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Duration("poll_interval", cfg.IndexerPollInterval),
	)

	ticker := time.NewTicker(cfg.IndexerPollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := ix.PollOnce(ctx); err != nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-sigCh:
			log.Info("shutting down chain indexer")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
