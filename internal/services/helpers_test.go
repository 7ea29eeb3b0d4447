package services

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

const (
	alice = "0x00000000000000000000000000000000000000A1"
	bob   = "0x00000000000000000000000000000000000000B2"
)

type fakeContract struct {
	mu       sync.Mutex
	listings []models.AssetListing
	listErr  error
	receipt  *models.TxReceipt
	txErr    error
	release  chan struct{}
	started  chan struct{}

	mintCalls []mintCall
	buyCalls  []buyCall
	listCalls int
}

type mintCall struct {
	from, name, desc, image string
	price                   *big.Int
}

type buyCall struct {
	from, tokenID string
	value         *big.Int
}

func (f *fakeContract) wait() {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeContract) Mint(_ context.Context, from, name, description, imageRef string, priceWei *big.Int) (*models.TxReceipt, error) {
	f.mu.Lock()
	f.mintCalls = append(f.mintCalls, mintCall{from, name, description, imageRef, priceWei})
	f.mu.Unlock()
	f.wait()
	return f.receipt, f.txErr
}

func (f *fakeContract) Buy(_ context.Context, from, tokenID string, value *big.Int) (*models.TxReceipt, error) {
	f.mu.Lock()
	f.buyCalls = append(f.buyCalls, buyCall{from, tokenID, value})
	f.mu.Unlock()
	f.wait()
	return f.receipt, f.txErr
}

func (f *fakeContract) ListAll(context.Context) ([]models.AssetListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]models.AssetListing(nil), f.listings...), f.listErr
}

func (f *fakeContract) OwnerOf(_ context.Context, tokenID string) (string, error) {
	l, ok := models.FindListing(f.listings, tokenID)
	if !ok {
		return "", models.ErrListingNotFound
	}
	return l.Owner, nil
}

func (f *fakeContract) networkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mintCalls) + len(f.buyCalls)
}

type memAuditor struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *memAuditor) Log(_ context.Context, e models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Flow + ":" + e.Action
	}
	return out
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *memPublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func connectedSession(account string) *wallet.Session {
	s := wallet.NewSession(nil, zap.NewNop())
	if account != "" {
		s.OnAccountsChanged([]string{account})
	}
	return s
}

func newCatalog(c Contract) *CatalogService {
	return NewCatalogService(c, time.Minute, zap.NewNop())
}

func mintedReceipt(tokenID int64, creator string, price *big.Int) *models.TxReceipt {
	return &models.TxReceipt{
		TxHash:  "0xmint",
		Success: true,
		Events: []models.TxEvent{{
			Name:   models.EventNFTMinted,
			Fields: map[string]any{"tokenId": big.NewInt(tokenID), "creator": creator, "price": price},
		}},
	}
}

func purchasedReceipt(tokenID int64, buyer string, price *big.Int) *models.TxReceipt {
	return &models.TxReceipt{
		TxHash:  "0xbuy",
		Success: true,
		Events: []models.TxEvent{{
			Name:   models.EventNFTPurchased,
			Fields: map[string]any{"tokenId": big.NewInt(tokenID), "buyer": buyer, "price": price},
		}},
	}
}
