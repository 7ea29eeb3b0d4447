package dto

import (
	"math/big"

	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/models"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type WalletResponse struct {
	Account    string `json:"account,omitempty"`
	Connected  bool   `json:"connected"`
	Connecting bool   `json:"connecting"`
}

// ListingResponse adds the display price next to the wei amount.
type ListingResponse struct {
	models.AssetListing
	Price string `json:"price"`
}

func NewListingResponse(l models.AssetListing) ListingResponse {
	return ListingResponse{AssetListing: l, Price: chain.FormatAmount(l.PriceMinor)}
}

func NewListingResponses(ls []models.AssetListing) []ListingResponse {
	out := make([]ListingResponse, len(ls))
	for i, l := range ls {
		out[i] = NewListingResponse(l)
	}
	return out
}

type PurchaseResponse struct {
	models.Purchase
	Price string `json:"price"`
}

type MintResultResponse struct {
	models.MintResult
	Price string `json:"price"`
}

type MintDraftResponse struct {
	models.MintDraft
	Price string `json:"price,omitempty"`
}

func NewMintDraftResponse(d models.MintDraft) MintDraftResponse {
	return MintDraftResponse{MintDraft: d, Price: formatOptional(d.PriceMinor)}
}

type ImageResponse struct {
	models.ImageBlob
	DataURI string `json:"data_uri"`
}

type GenerationResponse struct {
	Succeeded []ImageResponse `json:"succeeded"`
	Failed    []string        `json:"failed"`
}

func NewGenerationResponse(r *models.GenerationResult) GenerationResponse {
	out := GenerationResponse{Succeeded: []ImageResponse{}, Failed: []string{}}
	if r == nil {
		return out
	}
	for _, b := range r.Succeeded {
		out.Succeeded = append(out.Succeeded, ImageResponse{ImageBlob: b, DataURI: b.DataURI()})
	}
	out.Failed = append(out.Failed, r.Failed...)
	return out
}

func formatOptional(v *big.Int) string {
	if v == nil {
		return ""
	}
	return chain.FormatAmount(v)
}
