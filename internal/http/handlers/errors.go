package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/middleware"
	"github.com/nft-marketplace/backend/internal/models"
)

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrProviderUnavailable, fiber.StatusServiceUnavailable, "provider_unavailable"},
	{models.ErrUserRejected, fiber.StatusForbidden, "user_rejected"},
	{models.ErrConnectInProgress, fiber.StatusConflict, "connect_in_progress"},
	{models.ErrAllProvidersFailed, fiber.StatusBadGateway, "all_providers_failed"},
	{models.ErrPromptTooShort, fiber.StatusBadRequest, "prompt_too_short"},
	{models.ErrRecommendationService, fiber.StatusBadGateway, "recommendation_service"},
	{models.ErrWalletNotConnected, fiber.StatusUnauthorized, "wallet_not_connected"},
	{models.ErrSelfPurchaseDisallowed, fiber.StatusForbidden, "self_purchase"},
	{models.ErrTransactionReverted, fiber.StatusUnprocessableEntity, "transaction_reverted"},
	{models.ErrConfigurationMissing, fiber.StatusServiceUnavailable, "configuration_missing"},
	{models.ErrSubmissionInProgress, fiber.StatusConflict, "submission_in_progress"},
	{models.ErrDraftNotFound, fiber.StatusNotFound, "draft_not_found"},
	{models.ErrInvalidStep, fiber.StatusConflict, "invalid_step"},
	{models.ErrInvalidPrice, fiber.StatusBadRequest, "invalid_price"},
	{models.ErrDescriptionTooShort, fiber.StatusBadRequest, "description_too_short"},
	{models.ErrListingNotFound, fiber.StatusNotFound, "listing_not_found"},
	{models.ErrSessionNotFound, fiber.StatusNotFound, "session_not_found"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "timeout"},
}

// StatusFor maps a domain error to its HTTP status and stable code.
func StatusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return fiber.StatusInternalServerError, "internal"
}

func respondError(c *fiber.Ctx, err error) error {
	return respondErrorData(c, err, nil)
}

// respondErrorData is respondError with a payload, for partial results.
func respondErrorData(c *fiber.Ctx, err error, data any) error {
	status, code := StatusFor(err)
	return c.Status(status).JSON(dto.ErrorResponse{
		Error:     models.UserMessage(err),
		Code:      code,
		Data:      data,
		RequestID: middleware.RequestID(c),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg, RequestID: middleware.RequestID(c)})
}
