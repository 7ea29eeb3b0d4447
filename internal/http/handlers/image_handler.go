package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/imagegen"
	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

type ImageHandler struct {
	orchestrator *imagegen.Orchestrator
	log          *zap.Logger
}

func NewImageHandler(orchestrator *imagegen.Orchestrator, log *zap.Logger) *ImageHandler {
	return &ImageHandler{orchestrator: orchestrator, log: log}
}

// Generate runs the prompt against every provider in order. When all of them
// fail the per-provider outcome is still returned with the error.
// POST /images/generate
func (h *ImageHandler) Generate(c *fiber.Ctx) error {
	var req dto.GenerateImagesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	result, err := h.orchestrator.Generate(c.UserContext(), models.GenerationRequest{
		Prompt:    req.Prompt,
		Providers: req.Providers,
	})
	if errors.Is(err, models.ErrAllProvidersFailed) {
		return respondErrorData(c, err, dto.NewGenerationResponse(result))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewGenerationResponse(result)})
}
