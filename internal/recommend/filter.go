package recommend

import (
	"math/big"
	"sort"
	"strings"

	"github.com/nft-marketplace/backend/internal/models"
)

type SortOrder string

const (
	SortRecent    SortOrder = "recent" // highest token id first
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortScore     SortOrder = "score"
)

// FilterOptions are the marketplace browse filters. Nil bounds are open.
type FilterOptions struct {
	Search   string
	MinPrice *big.Int
	MaxPrice *big.Int
	MinScore float64
	Sort     SortOrder
}

func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortPriceAsc, SortPriceDesc, SortScore:
		return SortOrder(s)
	default:
		return SortRecent
	}
}

// Filter returns a new slice; the catalog is left untouched.
func Filter(catalog []models.AssetListing, opts FilterOptions) []models.AssetListing {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	out := filterListings(catalog, func(l models.AssetListing) bool {
		if search != "" && !contains(l, search) {
			return false
		}
		price := l.Price()
		if opts.MinPrice != nil && price.Cmp(opts.MinPrice) < 0 {
			return false
		}
		if opts.MaxPrice != nil && price.Cmp(opts.MaxPrice) > 0 {
			return false
		}
		return l.Score >= opts.MinScore
	})

	var less func(a, b models.AssetListing) bool
	switch opts.Sort {
	case SortPriceAsc:
		less = func(a, b models.AssetListing) bool { return a.Price().Cmp(b.Price()) < 0 }
	case SortPriceDesc:
		less = func(a, b models.AssetListing) bool { return a.Price().Cmp(b.Price()) > 0 }
	case SortScore:
		less = func(a, b models.AssetListing) bool { return a.Score > b.Score }
	default:
		less = func(a, b models.AssetListing) bool { return tokenID(a).Cmp(tokenID(b)) > 0 }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// OwnedBy returns the listings whose owner is account.
func OwnedBy(catalog []models.AssetListing, account string) []models.AssetListing {
	return filterListings(catalog, func(l models.AssetListing) bool { return l.OwnedBy(account) })
}

func tokenID(l models.AssetListing) *big.Int {
	id, ok := new(big.Int).SetString(l.ID, 10)
	if !ok {
		return new(big.Int)
	}
	return id
}
