package recommend

import (
	"context"

	"github.com/nft-marketplace/backend/internal/models"
)

// MaxResults caps every recommendation.
const MaxResults = 4

// Outcome tells the caller which rule produced the listings.
type Outcome string

const (
	OutcomeDirect  Outcome = "direct"   // query is a substring of name or description
	OutcomeTheme   Outcome = "theme"    // a theme term in the query
	OutcomeIntent  Outcome = "intent"   // price/score intent keyword
	OutcomeNoMatch Outcome = "no_match" // nothing matched; listings are a random pick
	OutcomeRemote  Outcome = "remote"   // ranked by the conversational service
)

type Recommendation struct {
	Listings []models.AssetListing `json:"listings"`
	Outcome  Outcome               `json:"outcome"`
}

// Matcher ranks a catalog against free-text intent.
type Matcher interface {
	Match(ctx context.Context, query string, catalog []models.AssetListing) (Recommendation, error)
	Strategy() string
}

func capResults(listings []models.AssetListing) []models.AssetListing {
	if len(listings) > MaxResults {
		return listings[:MaxResults]
	}
	return listings
}
