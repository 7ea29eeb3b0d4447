package models

import (
	"math/big"
	"strings"
)

// AssetListing is an immutable snapshot of a token as reported by the contract.
// PriceMinor is denominated in the chain's native minor unit (wei).
type AssetListing struct {
	ID          string   `json:"id"`
	Creator     string   `json:"creator"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageRef    string   `json:"image_ref"`
	PriceMinor  *big.Int `json:"price_minor"`
	Listed      bool     `json:"listed"`
	Score       float64  `json:"score"`
}

// OwnedBy compares addresses case-insensitively, matching the checksum-agnostic
// convention of wallet providers.
func (l AssetListing) OwnedBy(account string) bool {
	return account != "" && strings.EqualFold(l.Owner, account)
}

// Price returns a copy of the listing price so callers cannot mutate the snapshot.
func (l AssetListing) Price() *big.Int {
	if l.PriceMinor == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(l.PriceMinor)
}

func FindListing(catalog []AssetListing, id string) (AssetListing, bool) {
	for _, l := range catalog {
		if l.ID == id {
			return l, true
		}
	}
	return AssetListing{}, false
}
