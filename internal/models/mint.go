package models

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

type MintStep string

// Mint wizard steps
const (
	MintStepDescribe   MintStep = "describe"
	MintStepPrice      MintStep = "price"
	MintStepSubmitting MintStep = "submitting"
	MintStepDone       MintStep = "done"
)

// Valid mint transitions: from -> []to. Submitting falls back to Price on
// failure so the entered data survives for a user-initiated retry.
var ValidMintTransitions = map[MintStep][]MintStep{
	MintStepDescribe:   {MintStepPrice},
	MintStepPrice:      {MintStepDescribe, MintStepSubmitting},
	MintStepSubmitting: {MintStepDone, MintStepPrice},
	MintStepDone:       {},
}

func IsValidMintTransition(from, to MintStep) bool {
	for _, s := range ValidMintTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PriceSuggestion struct {
	Point float64    `json:"point"`
	Range PriceRange `json:"range"`
}

// MintDraft is the unpersisted state of one open mint wizard.
type MintDraft struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	ImageRef    string           `json:"image_ref"`
	ImageCID    string           `json:"image_cid,omitempty"` // set when the image was pinned
	PriceMinor  *big.Int         `json:"price_minor,omitempty"`
	Suggestion  *PriceSuggestion `json:"suggestion,omitempty"`
	Step        MintStep         `json:"step"`
	LastError   string           `json:"last_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// ReadyForPrice reports whether the describe step is complete.
func (d *MintDraft) ReadyForPrice() bool {
	return d.Name != "" && d.Description != "" && d.ImageRef != ""
}

func (d *MintDraft) HasPrice() bool {
	return d.PriceMinor != nil && d.PriceMinor.Sign() > 0
}

// MintResult carries the authoritative outcome read from the NFTMinted event.
type MintResult struct {
	TxHash     string   `json:"tx_hash"`
	TokenID    string   `json:"token_id"`
	Creator    string   `json:"creator"`
	PriceMinor *big.Int `json:"price_minor"`
	Account    string   `json:"account"`
}
