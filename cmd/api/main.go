package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/db"
	"github.com/nft-marketplace/backend/internal/events"
	apphttp "github.com/nft-marketplace/backend/internal/http"
	"github.com/nft-marketplace/backend/internal/http/handlers"
	"github.com/nft-marketplace/backend/internal/imagegen"
	"github.com/nft-marketplace/backend/internal/pricing"
	"github.com/nft-marketplace/backend/internal/recommend"
	"github.com/nft-marketplace/backend/internal/repositories"
	"github.com/nft-marketplace/backend/internal/services"
	"github.com/nft-marketplace/backend/internal/wallet"
	"github.com/nft-marketplace/backend/migrations"
	"go.uber.org/zap"
)

const catalogTTL = 15 * time.Second

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Audit trail (optional)
	var auditor services.Auditor = services.NopAuditor{}
	var activity handlers.ActivityLister
	if cfg.PostgresDSN != "" {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		auditRepo := repositories.NewAuditRepo(pool)
		auditor, activity = auditRepo, auditRepo
	}

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Wallet
	keys, err := wallet.NewKeyProvider(cfg.WalletPrivateKeys, cfg.WalletRejectAccess)
	if err != nil {
		log.Fatal("invalid WALLET_PRIVATE_KEYS", zap.Error(err))
	}
	var provider wallet.Provider
	var signer chain.Signer
	if len(cfg.WalletPrivateKeys) > 0 {
		provider, signer = keys, keys
	}
	session := wallet.NewSession(provider, log)
	if err := wallet.NewBridge(session, subscriber, log).Start(ctx); err != nil {
		log.Fatal("failed to start wallet bridge", zap.Error(err))
	}

	// Chain
	var backend chain.Backend
	if cfg.ChainRPCURL != "" {
		eth, err := ethclient.DialContext(ctx, cfg.ChainRPCURL)
		if err != nil {
			log.Fatal("failed to dial chain rpc", zap.String("url", cfg.ChainRPCURL), zap.Error(err))
		}
		defer eth.Close()
		backend = eth
	}
	contract, err := chain.NewClient(backend, signer, cfg, log)
	if err != nil {
		log.Fatal("failed to init contract client", zap.Error(err))
	}

	// Services
	catalog := services.NewCatalogService(contract, catalogTTL, log)
	if err := catalog.WatchMarket(ctx, subscriber); err != nil {
		log.Fatal("failed to watch market events", zap.Error(err))
	}
	engine := pricing.NewEngine(cfg.RNGSeed)
	orchestrator := imagegen.NewOrchestrator(
		imagegen.NewHTTPProvider(cfg.ImageAPIURL, cfg.ImageAPIToken, nil),
		imagegen.Options{DefaultProviders: cfg.ImageProviders, Timeout: cfg.ImageProviderTimeout},
		log,
	)
	pinner := services.NewPinningClient(cfg.PinningAPIURL, cfg.PinningJWT, cfg.ContentGatewayURL, cfg.PinningTimeout, log)
	minter := services.NewMintCoordinator(contract, session, engine, pinner, catalog, auditor, publisher, log)
	buyer := services.NewBuyCoordinator(contract, session, catalog, auditor, publisher, log)

	var matcher recommend.Matcher = recommend.NewLocalMatcher(cfg.RNGSeed)
	if cfg.RecommendStrategy == "remote" {
		ranker := services.NewRankingClient(cfg.ChatAPIURL, cfg.ChatAPIKey, cfg.ChatModel, cfg.ChatTimeout, log)
		matcher = recommend.NewRemoteMatcher(ranker)
	}
	chat := services.NewChatService(matcher, catalog, cfg.RNGSeed, log)

	// Handlers
	walletHandler := handlers.NewWalletHandler(session, activity, log)
	listingHandler := handlers.NewListingHandler(catalog, buyer, session, log)
	priceHandler := handlers.NewPriceHandler(engine)
	imageHandler := handlers.NewImageHandler(orchestrator, log)
	mintHandler := handlers.NewMintHandler(minter, log)
	chatHandler := handlers.NewChatHandler(chat, log)
	wsHub := handlers.NewWSHub(session, subscriber, log)

	// Start WS hub
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start websocket hub", zap.Error(err))
	}

	// Fiber app
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler})

	apphttp.SetupRouter(app, cfg, log, rdb, walletHandler, listingHandler, priceHandler, imageHandler, mintHandler, chatHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server",
		zap.String("addr", addr),
		zap.String("recommend_strategy", matcher.Strategy()),
		zap.Int("wallet_accounts", len(cfg.WalletPrivateKeys)),
	)
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
