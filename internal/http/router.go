package http

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nft-marketplace/backend/internal/config"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/http/handlers"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrorHandler renders errors that escaped the handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: middleware.RequestID(c)})
}

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	walletHandler *handlers.WalletHandler,
	listingHandler *handlers.ListingHandler,
	priceHandler *handlers.PriceHandler,
	imageHandler *handlers.ImageHandler,
	mintHandler *handlers.MintHandler,
	chatHandler *handlers.ChatHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID, X-Wallet-Account",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(metrics.Middleware())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMin, time.Minute, log))

	// Wallet session
	api.Get("/wallet", walletHandler.GetWallet)
	api.Post("/wallet/connect", walletHandler.ConnectWallet)
	api.Delete("/wallet", walletHandler.DisconnectWallet)
	api.Post("/wallet/accounts-changed", walletHandler.AccountsChanged)
	api.Get("/wallet/activity", walletHandler.Activity)

	// Marketplace
	api.Get("/listings", listingHandler.ListListings)
	api.Get("/listings/mine", listingHandler.MyListings)
	api.Get("/listings/:id/owner", listingHandler.GetOwner)
	api.Post("/listings/:id/buy", listingHandler.BuyListing)

	// Pricing and images
	api.Post("/price/suggest", priceHandler.Suggest)
	api.Post("/images/generate", imageHandler.Generate)

	// Mint wizard
	api.Post("/mint", mintHandler.OpenDraft)
	api.Get("/mint/:id", mintHandler.GetDraft)
	api.Put("/mint/:id", mintHandler.UpdateDraft)
	api.Delete("/mint/:id", mintHandler.CloseDraft)
	api.Post("/mint/:id/image", mintHandler.AttachImage)
	api.Post("/mint/:id/next", mintHandler.Next)
	api.Post("/mint/:id/back", mintHandler.Back)
	api.Post("/mint/:id/suggest-price", mintHandler.SuggestPrice)
	api.Post("/mint/:id/submit", mintHandler.Submit)

	// Smart buyer chat
	api.Post("/chat", chatHandler.Open)
	api.Get("/chat/:id", chatHandler.Get)
	api.Post("/chat/:id/messages", chatHandler.Send)
	api.Delete("/chat/:id", chatHandler.Close)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
