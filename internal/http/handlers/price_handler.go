package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/pricing"
)

type PriceHandler struct {
	engine *pricing.Engine
}

func NewPriceHandler(engine *pricing.Engine) *PriceHandler {
	return &PriceHandler{engine: engine}
}

// POST /price/suggest
func (h *PriceHandler) Suggest(c *fiber.Ctx) error {
	var req dto.SuggestPriceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	suggestion, err := h.engine.SuggestChecked(req.Description)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: suggestion})
}
