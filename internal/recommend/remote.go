package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/models"
)

// Ranker sends one system instruction and one user message to a
// conversational service and returns the reply text.
type Ranker interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// RemoteMatcher delegates ranking to a conversational service.
type RemoteMatcher struct {
	ranker Ranker
}

func NewRemoteMatcher(ranker Ranker) *RemoteMatcher {
	return &RemoteMatcher{ranker: ranker}
}

func (m *RemoteMatcher) Strategy() string { return "remote" }

func (m *RemoteMatcher) Match(ctx context.Context, query string, catalog []models.AssetListing) (Recommendation, error) {
	reply, err := m.ranker.Complete(ctx, SystemPrompt(catalog), query)
	if err != nil {
		return Recommendation{}, fmt.Errorf("%w: %v", models.ErrRecommendationService, err)
	}
	if strings.TrimSpace(reply) == "" {
		return Recommendation{}, fmt.Errorf("%w: empty reply", models.ErrRecommendationService)
	}
	listings := Project(ParseIDList(reply), catalog)
	return Recommendation{Listings: capResults(listings), Outcome: OutcomeRemote}, nil
}

// SystemPrompt lists the catalog for the ranking service.
func SystemPrompt(catalog []models.AssetListing) string {
	var b strings.Builder
	b.WriteString("You are an NFT recommendation assistant. Analyze the following NFTs and the user's query to recommend the most suitable NFTs. ")
	b.WriteString("Only respond with the NFT IDs that best match the query. Format your response as a comma-separated list of IDs.\n\n")
	b.WriteString("Available NFTs:\n")
	for i, l := range catalog {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "ID: %s\nName: %s\nDescription: %s\nPrice: %s SONIC\n",
			l.ID, l.Name, l.Description, chain.FormatAmount(l.PriceMinor))
	}
	return b.String()
}

// ParseIDList splits a comma-separated reply into trimmed, de-duplicated ids
// in reply order.
func ParseIDList(reply string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, part := range strings.Split(reply, ",") {
		id := strings.TrimSpace(part)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Project maps ids onto the catalog in id order; unknown ids are dropped.
func Project(ids []string, catalog []models.AssetListing) []models.AssetListing {
	var out []models.AssetListing
	for _, id := range ids {
		if l, ok := models.FindListing(catalog, id); ok {
			out = append(out, l)
		}
	}
	return out
}
