package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/services"
	"go.uber.org/zap"
)

type MintHandler struct {
	minter *services.MintCoordinator
	log    *zap.Logger
}

func NewMintHandler(minter *services.MintCoordinator, log *zap.Logger) *MintHandler {
	return &MintHandler{minter: minter, log: log}
}

func draftID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func (h *MintHandler) draftResponse(c *fiber.Ctx, d models.MintDraft, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewMintDraftResponse(d)})
}

// OpenDraft starts the wizard at the describe step.
// POST /mint
func (h *MintHandler) OpenDraft(c *fiber.Ctx) error {
	d := h.minter.Open()
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.NewMintDraftResponse(d)})
}

// GET /mint/:id
func (h *MintHandler) GetDraft(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	d, err := h.minter.Get(id)
	return h.draftResponse(c, d, err)
}

// PUT /mint/:id
func (h *MintHandler) UpdateDraft(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	var req dto.UpdateMintRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	d, err := h.minter.Update(id, services.MintUpdate{
		Name:        req.Name,
		Description: req.Description,
		ImageRef:    req.ImageRef,
		Price:       req.Price,
	})
	return h.draftResponse(c, d, err)
}

// AttachImage pins a generated image and stores its gateway URL.
// POST /mint/:id/image
func (h *MintHandler) AttachImage(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	var req dto.AttachImageRequest
	if err := c.BodyParser(&req); err != nil || req.ImageBase64 == "" {
		return badRequest(c, "image_base64 is required")
	}
	d, err := h.minter.AttachImage(c.UserContext(), id, req.ImageBase64)
	if err != nil {
		h.log.Warn("attach image failed", zap.String("draft_id", id.String()), zap.Error(err))
	}
	return h.draftResponse(c, d, err)
}

// POST /mint/:id/next
func (h *MintHandler) Next(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	d, err := h.minter.Next(id)
	return h.draftResponse(c, d, err)
}

// POST /mint/:id/back
func (h *MintHandler) Back(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	d, err := h.minter.Back(id)
	return h.draftResponse(c, d, err)
}

// POST /mint/:id/suggest-price
func (h *MintHandler) SuggestPrice(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	d, err := h.minter.SuggestPrice(id)
	return h.draftResponse(c, d, err)
}

// Submit mints from the connected account. On failure the draft stays open
// at the price step.
// POST /mint/:id/submit
func (h *MintHandler) Submit(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	result, err := h.minter.Submit(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.MintResultResponse{
		MintResult: *result,
		Price:      chain.FormatAmount(result.PriceMinor),
	}})
}

// DELETE /mint/:id
func (h *MintHandler) CloseDraft(c *fiber.Ctx) error {
	id, ok := draftID(c)
	if !ok {
		return badRequest(c, "invalid draft id")
	}
	if err := h.minter.Close(id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
