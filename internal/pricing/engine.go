package pricing

import (
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/nft-marketplace/backend/internal/models"
)

const (
	basePrice    = 0.05
	perWord      = 0.04
	keywordBoost = 1.5
	jitterLow    = 0.8
	jitterHigh   = 1.2
	maxPoint     = 3.0
	minPrice     = 0.01
	rangeLow     = 0.7
	rangeHigh    = 1.3

	// MinDescriptionLength is the shortest description that gets a price.
	MinDescriptionLength = 4
)

var valueTerms = []string{"rare", "unique", "special", "legendary", "ai", "generated"}

// Engine suggests a price from a free-text description. The heuristic is a
// fixed formula; only the jitter is random.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine returns an engine whose jitter is reproducible for a given seed.
// Seed 0 seeds from the clock.
func NewEngine(seed uint64) *Engine {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Engine{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (e *Engine) Suggest(description string) models.PriceSuggestion {
	base := basePrice + float64(WordCount(description))*perWord
	if HasValueTerm(description) {
		base *= keywordBoost
	}

	e.mu.Lock()
	r := jitterLow + e.rng.Float64()*(jitterHigh-jitterLow)
	e.mu.Unlock()

	point := round2(math.Min(maxPoint, base*r))
	return models.PriceSuggestion{
		Point: point,
		Range: models.PriceRange{
			Min: math.Max(minPrice, round2(point*rangeLow)),
			Max: round2(point * rangeHigh),
		},
	}
}

// SuggestChecked is Suggest for user input: descriptions shorter than
// MinDescriptionLength are refused.
func (e *Engine) SuggestChecked(description string) (models.PriceSuggestion, error) {
	if len(strings.TrimSpace(description)) < MinDescriptionLength {
		return models.PriceSuggestion{}, models.ErrDescriptionTooShort
	}
	return e.Suggest(description), nil
}

// WordCount counts pieces separated by single spaces, so "" counts as one
// word and repeated spaces add empty words.
func WordCount(description string) int {
	return len(strings.Split(description, " "))
}

func HasValueTerm(description string) bool {
	lower := strings.ToLower(description)
	for _, term := range valueTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
