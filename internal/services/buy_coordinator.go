package services

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

const flowBuy = "buy"

// BuyCoordinator runs purchases: guard, submit, then read the outcome from
// the purchase event. Purchases are never retried automatically.
type BuyCoordinator struct {
	contract Contract
	session  *wallet.Session
	catalog  *CatalogService
	rec      txRecorder
	log      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]models.BuyState
}

func NewBuyCoordinator(
	contract Contract,
	session *wallet.Session,
	catalog *CatalogService,
	auditor Auditor,
	publisher events.Publisher,
	log *zap.Logger,
) *BuyCoordinator {
	return &BuyCoordinator{
		contract: contract,
		session:  session,
		catalog:  catalog,
		rec:      txRecorder{auditor: auditor, publisher: publisher, log: log},
		log:      log,
		inFlight: make(map[string]models.BuyState),
	}
}

// State reports where a purchase of listingID currently is.
func (c *BuyCoordinator) State(listingID string) models.BuyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.inFlight[listingID]; ok {
		return s
	}
	return models.BuyStateIdle
}

// Buy purchases listing at its snapshot price from the account connected at
// entry. The guard rejects without any network call.
func (c *BuyCoordinator) Buy(ctx context.Context, listing models.AssetListing) (*models.Purchase, error) {
	if err := c.enter(listing.ID); err != nil {
		return nil, err
	}

	account := c.session.Account()
	if err := guardPurchase(listing, account); err != nil {
		c.leave(listing.ID)
		return nil, err
	}
	return c.submit(ctx, listing, account)
}

// BuyByID rejects a disconnected wallet before resolving the listing, so
// the catalog is only read on behalf of a connected account.
func (c *BuyCoordinator) BuyByID(ctx context.Context, listingID string) (*models.Purchase, error) {
	if err := c.enter(listingID); err != nil {
		return nil, err
	}

	account := c.session.Account()
	if account == "" {
		c.leave(listingID)
		return nil, models.ErrWalletNotConnected
	}
	listing, err := c.catalog.Get(ctx, listingID)
	if err != nil {
		c.leave(listingID)
		return nil, err
	}
	if err := guardPurchase(listing, account); err != nil {
		c.leave(listingID)
		return nil, err
	}
	return c.submit(ctx, listing, account)
}

func (c *BuyCoordinator) submit(ctx context.Context, listing models.AssetListing, account string) (*models.Purchase, error) {
	c.advance(listing.ID, models.BuyStateSubmitting)
	price := listing.Price()
	c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowBuy, Action: "submitted", EntityID: listing.ID,
		Meta: map[string]any{"price_wei": price.String()}})

	start := time.Now()
	purchase, err := c.buy(ctx, account, listing.ID, price)
	elapsed := time.Since(start)
	if err != nil {
		c.leave(listing.ID)
		metrics.RecordTxSubmission(flowBuy, txOutcome(err), elapsed)
		c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowBuy, Action: "failed", EntityID: listing.ID,
			Meta: map[string]any{"error": err.Error()}})
		c.log.Warn("purchase failed", zap.String("token_id", listing.ID), zap.String("account", account), zap.Error(err))
		return nil, err
	}

	c.advance(listing.ID, models.BuyStateDone)
	c.leave(listing.ID)

	metrics.RecordTxSubmission(flowBuy, "confirmed", elapsed)
	c.catalog.Invalidate()
	c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowBuy, Action: "confirmed", EntityID: purchase.TokenID, TxHash: purchase.TxHash})
	c.rec.confirmed(flowBuy, account, purchase.TxHash, map[string]any{
		"token_id":  purchase.TokenID,
		"buyer":     purchase.Buyer,
		"price_wei": purchase.PriceMinor.String(),
	})
	c.log.Info("nft purchased",
		zap.String("token_id", purchase.TokenID),
		zap.String("buyer", purchase.Buyer),
		zap.String("tx_hash", purchase.TxHash),
	)
	return purchase, nil
}

func guardPurchase(listing models.AssetListing, account string) error {
	if account == "" {
		return models.ErrWalletNotConnected
	}
	if listing.OwnedBy(account) {
		return models.ErrSelfPurchaseDisallowed
	}
	return nil
}

func (c *BuyCoordinator) buy(ctx context.Context, account, tokenID string, price *big.Int) (*models.Purchase, error) {
	receipt, err := c.contract.Buy(ctx, account, tokenID, price)
	if err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, fmt.Errorf("%w: %s", models.ErrTransactionReverted, receipt.TxHash)
	}
	ev, ok := receipt.FindEvent(models.EventNFTPurchased)
	if !ok {
		return nil, fmt.Errorf("%w: no %s event in %s", models.ErrTransactionReverted, models.EventNFTPurchased, receipt.TxHash)
	}

	id, okID := chain.EventTokenID(ev)
	buyer, okBuyer := chain.EventAddress(ev, "buyer")
	paid, okPrice := chain.EventPrice(ev)
	if !okID || !okBuyer || !okPrice {
		return nil, fmt.Errorf("%w: malformed %s event", models.ErrTransactionReverted, models.EventNFTPurchased)
	}
	return &models.Purchase{TxHash: receipt.TxHash, TokenID: id, Buyer: buyer, PriceMinor: paid, Account: account}, nil
}

func (c *BuyCoordinator) enter(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[id]; busy {
		return models.ErrSubmissionInProgress
	}
	c.inFlight[id] = models.BuyStateGuarding
	return nil
}

func (c *BuyCoordinator) advance(id string, to models.BuyState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.inFlight[id]
	if !models.IsValidBuyTransition(from, to) {
		c.log.Error("invalid buy transition", zap.String("token_id", id), zap.String("from", string(from)), zap.String("to", string(to)))
		return
	}
	c.inFlight[id] = to
}

func (c *BuyCoordinator) leave(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}
