package handlers

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

// ActivityLister reads the submission audit trail.
type ActivityLister interface {
	ListByActor(ctx context.Context, address string, limit, offset int) ([]models.AuditLog, error)
}

type WalletHandler struct {
	session  *wallet.Session
	activity ActivityLister // nil without POSTGRES_DSN
	log      *zap.Logger
}

func NewWalletHandler(session *wallet.Session, activity ActivityLister, log *zap.Logger) *WalletHandler {
	return &WalletHandler{session: session, activity: activity, log: log}
}

func walletResponse(s wallet.State) dto.WalletResponse {
	return dto.WalletResponse{Account: s.Account, Connected: s.Connected(), Connecting: s.Connecting}
}

// GetWallet returns the session snapshot.
// GET /wallet
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletResponse(h.session.Snapshot())})
}

// ConnectWallet asks the provider for access.
// POST /wallet/connect
func (h *WalletHandler) ConnectWallet(c *fiber.Ctx) error {
	state, err := h.session.Connect(c.UserContext())
	if err != nil {
		h.log.Debug("wallet connect failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletResponse(state)})
}

// DisconnectWallet clears the account locally; the provider is not told.
// DELETE /wallet
func (h *WalletHandler) DisconnectWallet(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletResponse(h.session.Disconnect())})
}

// AccountsChanged relays the provider's accountsChanged event from the browser.
// POST /wallet/accounts-changed
func (h *WalletHandler) AccountsChanged(c *fiber.Ctx) error {
	var req dto.AccountsChangedRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletResponse(h.session.OnAccountsChanged(req.Accounts))})
}

// Activity lists the connected account's mint and buy attempts.
// GET /wallet/activity?limit&offset
func (h *WalletHandler) Activity(c *fiber.Ctx) error {
	if h.activity == nil {
		return respondError(c, fmt.Errorf("%w: POSTGRES_DSN", models.ErrConfigurationMissing))
	}
	account := h.session.Account()
	if account == "" {
		return respondError(c, models.ErrWalletNotConnected)
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, err := h.activity.ListByActor(c.UserContext(), account, limit, offset)
	if err != nil {
		h.log.Error("list activity failed", zap.String("account", account), zap.Error(err))
		return respondError(c, err)
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}
