package recommend

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nft-marketplace/backend/internal/models"
)

const fallbackSize = 3

var themeTerms = []string{"cosmic", "neural", "quantum"}

type intent struct {
	keywords []string
	less     func(a, b models.AssetListing) bool
}

// Checked in order; the first intent whose keyword appears wins.
var intents = []intent{
	{[]string{"best", "top", "trending", "popular"}, func(a, b models.AssetListing) bool { return a.Score > b.Score }},
	{[]string{"cheap", "affordable"}, func(a, b models.AssetListing) bool { return a.Price().Cmp(b.Price()) < 0 }},
	{[]string{"expensive", "premium"}, func(a, b models.AssetListing) bool { return a.Price().Cmp(b.Price()) > 0 }},
}

// LocalMatcher scores the catalog with keyword rules.
type LocalMatcher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewLocalMatcher seeds the random fallback; seed 0 uses the clock.
func NewLocalMatcher(seed uint64) *LocalMatcher {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &LocalMatcher{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (m *LocalMatcher) Strategy() string { return "local" }

// Match applies, in order: whole-query substring match widened by theme
// terms, intent keywords, then a random pick. Only the first rule that
// yields listings is used.
//
// Theme terms are extra inclusion predicates on the first pass, so a query
// such as "cosmic art" can return listings that contain "cosmic" but not the
// whole query. A direct result is the substring subset only when the query
// names no theme term.
func (m *LocalMatcher) Match(ctx context.Context, query string, catalog []models.AssetListing) (Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}
	q := strings.ToLower(strings.TrimSpace(query))

	direct := false
	matched := filterListings(catalog, func(l models.AssetListing) bool {
		if q != "" && contains(l, q) {
			direct = true
			return true
		}
		for _, term := range themeTerms {
			if strings.Contains(q, term) && contains(l, term) {
				return true
			}
		}
		return false
	})
	if len(matched) > 0 {
		outcome := OutcomeTheme
		if direct {
			outcome = OutcomeDirect
		}
		return Recommendation{Listings: capResults(matched), Outcome: outcome}, nil
	}

	for _, in := range intents {
		if !containsAny(q, in.keywords) {
			continue
		}
		sorted := append([]models.AssetListing(nil), catalog...)
		sort.SliceStable(sorted, func(i, j int) bool { return in.less(sorted[i], sorted[j]) })
		return Recommendation{Listings: head(sorted, fallbackSize), Outcome: OutcomeIntent}, nil
	}

	return Recommendation{Listings: m.randomPick(catalog), Outcome: OutcomeNoMatch}, nil
}

func (m *LocalMatcher) randomPick(catalog []models.AssetListing) []models.AssetListing {
	shuffled := append([]models.AssetListing(nil), catalog...)
	m.mu.Lock()
	m.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	m.mu.Unlock()
	return head(shuffled, fallbackSize)
}

func contains(l models.AssetListing, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(l.Name), lowerTerm) ||
		strings.Contains(strings.ToLower(l.Description), lowerTerm)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func filterListings(catalog []models.AssetListing, keep func(models.AssetListing) bool) []models.AssetListing {
	var out []models.AssetListing
	for _, l := range catalog {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func head(listings []models.AssetListing, n int) []models.AssetListing {
	if len(listings) > n {
		return listings[:n]
	}
	return listings
}
