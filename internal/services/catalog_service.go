package services

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/recommend"
	"go.uber.org/zap"
)

// Contract is the smart-contract surface used by the marketplace.
// *chain.Client implements it.
type Contract interface {
	Mint(ctx context.Context, from, name, description, imageRef string, priceWei *big.Int) (*models.TxReceipt, error)
	Buy(ctx context.Context, from, tokenID string, value *big.Int) (*models.TxReceipt, error)
	ListAll(ctx context.Context) ([]models.AssetListing, error)
	OwnerOf(ctx context.Context, tokenID string) (string, error)
}

// CatalogService caches the contract's listing snapshot. The cache is
// dropped after every confirmed transaction, local or seen on the market
// stream.
type CatalogService struct {
	contract Contract
	ttl      time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	listings  []models.AssetListing
	fetchedAt time.Time
	gen       uint64
}

func NewCatalogService(contract Contract, ttl time.Duration, log *zap.Logger) *CatalogService {
	return &CatalogService{contract: contract, ttl: ttl, log: log}
}

// List returns the current snapshot. Callers get their own slice.
func (s *CatalogService) List(ctx context.Context) ([]models.AssetListing, error) {
	s.mu.Lock()
	if s.listings != nil && time.Since(s.fetchedAt) < s.ttl {
		out := append([]models.AssetListing(nil), s.listings...)
		s.mu.Unlock()
		return out, nil
	}
	gen := s.gen
	s.mu.Unlock()

	listings, err := s.contract.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []models.AssetListing{}
	}

	s.mu.Lock()
	// a fetch that raced an invalidation is served but not cached
	if s.gen == gen {
		s.listings = listings
		s.fetchedAt = time.Now()
	}
	s.mu.Unlock()

	s.log.Debug("catalog refreshed", zap.Int("listings", len(listings)))
	return append([]models.AssetListing(nil), listings...), nil
}

func (s *CatalogService) Invalidate() {
	s.mu.Lock()
	s.listings = nil
	s.gen++
	s.mu.Unlock()
}

// WatchMarket drops the snapshot whenever the indexer reports a mint or a
// purchase, including ones made by other clients.
func (s *CatalogService) WatchMarket(ctx context.Context, subscriber events.Subscriber) error {
	return subscriber.Subscribe(ctx, events.StreamMarket, func(e events.Event) {
		switch e.Type {
		case events.EventListingMinted, events.EventListingPurchased:
			s.Invalidate()
			s.log.Debug("catalog invalidated by market event", zap.String("type", e.Type))
		}
	})
}

func (s *CatalogService) Get(ctx context.Context, id string) (models.AssetListing, error) {
	listings, err := s.List(ctx)
	if err != nil {
		return models.AssetListing{}, err
	}
	l, ok := models.FindListing(listings, id)
	if !ok {
		return models.AssetListing{}, models.ErrListingNotFound
	}
	return l, nil
}

func (s *CatalogService) Browse(ctx context.Context, opts recommend.FilterOptions) ([]models.AssetListing, error) {
	listings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return recommend.Filter(listings, opts), nil
}

// Owned returns account's tokens, most recent first.
func (s *CatalogService) Owned(ctx context.Context, account string) ([]models.AssetListing, error) {
	if account == "" {
		return nil, models.ErrWalletNotConnected
	}
	listings, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return recommend.Filter(recommend.OwnedBy(listings, account), recommend.FilterOptions{Sort: recommend.SortRecent}), nil
}

// OwnerOf asks the contract directly, bypassing the cache.
func (s *CatalogService) OwnerOf(ctx context.Context, id string) (string, error) {
	return s.contract.OwnerOf(ctx, id)
}
