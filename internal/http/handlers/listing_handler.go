package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/http/dto"
	"github.com/nft-marketplace/backend/internal/recommend"
	"github.com/nft-marketplace/backend/internal/services"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

type ListingHandler struct {
	catalog *services.CatalogService
	buyer   *services.BuyCoordinator
	session *wallet.Session
	log     *zap.Logger
}

func NewListingHandler(catalog *services.CatalogService, buyer *services.BuyCoordinator, session *wallet.Session, log *zap.Logger) *ListingHandler {
	return &ListingHandler{catalog: catalog, buyer: buyer, session: session, log: log}
}

// ListListings browses the catalog.
// GET /listings?search&min_price&max_price&min_score&sort
func (h *ListingHandler) ListListings(c *fiber.Ctx) error {
	opts := recommend.FilterOptions{
		Search: c.Query("search"),
		Sort:   recommend.ParseSortOrder(c.Query("sort")),
	}
	if v := c.Query("min_price"); v != "" {
		p, err := chain.ParseAmount(v)
		if err != nil {
			return badRequest(c, "invalid min_price")
		}
		opts.MinPrice = p
	}
	if v := c.Query("max_price"); v != "" {
		p, err := chain.ParseAmount(v)
		if err != nil {
			return badRequest(c, "invalid max_price")
		}
		opts.MaxPrice = p
	}
	if v := c.Query("min_score"); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return badRequest(c, "invalid min_score")
		}
		opts.MinScore = s
	}

	listings, err := h.catalog.Browse(c.UserContext(), opts)
	if err != nil {
		h.log.Error("list listings failed", zap.Error(err))
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewListingResponses(listings)})
}

// MyListings returns tokens owned by the connected account.
// GET /listings/mine
func (h *ListingHandler) MyListings(c *fiber.Ctx) error {
	listings, err := h.catalog.Owned(c.UserContext(), h.session.Account())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.NewListingResponses(listings)})
}

// GetOwner reads ownership from the contract, not the cache.
// GET /listings/:id/owner
func (h *ListingHandler) GetOwner(c *fiber.Ctx) error {
	owner, err := h.catalog.OwnerOf(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: fiber.Map{"token_id": c.Params("id"), "owner": owner}})
}

// BuyListing purchases a listing at its current catalog price.
// POST /listings/:id/buy
func (h *ListingHandler) BuyListing(c *fiber.Ctx) error {
	purchase, err := h.buyer.BuyByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PurchaseResponse{
		Purchase: *purchase,
		Price:    chain.FormatAmount(purchase.PriceMinor),
	}})
}
