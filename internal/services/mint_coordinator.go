package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/pricing"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

const flowMint = "mint"

// MintUpdate carries the fields a user edited; nil fields are left alone.
type MintUpdate struct {
	Name        *string
	Description *string
	ImageRef    *string
	Price       *string // decimal, user-facing unit
}

// MintCoordinator drives the mint wizard. Drafts live in memory only and are
// dropped when closed or minted.
type MintCoordinator struct {
	contract Contract
	session  *wallet.Session
	pricer   *pricing.Engine
	pinner   Pinner
	catalog  *CatalogService
	rec      txRecorder
	log      *zap.Logger

	mu     sync.Mutex
	drafts map[uuid.UUID]*mintEntry
}

type mintEntry struct {
	draft      models.MintDraft
	submitting bool
}

func NewMintCoordinator(
	contract Contract,
	session *wallet.Session,
	pricer *pricing.Engine,
	pinner Pinner,
	catalog *CatalogService,
	auditor Auditor,
	publisher events.Publisher,
	log *zap.Logger,
) *MintCoordinator {
	return &MintCoordinator{
		contract: contract,
		session:  session,
		pricer:   pricer,
		pinner:   pinner,
		catalog:  catalog,
		rec:      txRecorder{auditor: auditor, publisher: publisher, log: log},
		log:      log,
		drafts:   make(map[uuid.UUID]*mintEntry),
	}
}

func (c *MintCoordinator) Open() models.MintDraft {
	d := models.MintDraft{
		ID:        uuid.New(),
		Step:      models.MintStepDescribe,
		CreatedAt: time.Now(),
	}
	c.mu.Lock()
	c.drafts[d.ID] = &mintEntry{draft: d}
	c.mu.Unlock()
	return copyDraft(d)
}

func (c *MintCoordinator) Get(id uuid.UUID) (models.MintDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.drafts[id]
	if !ok {
		return models.MintDraft{}, models.ErrDraftNotFound
	}
	return copyDraft(e.draft), nil
}

// Close discards the draft. A submission still in flight completes on chain
// but its result is not applied anywhere.
func (c *MintCoordinator) Close(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.drafts[id]; !ok {
		return models.ErrDraftNotFound
	}
	delete(c.drafts, id)
	return nil
}

func (c *MintCoordinator) Update(id uuid.UUID, u MintUpdate) (models.MintDraft, error) {
	var price *big.Int
	if u.Price != nil {
		p, err := chain.ParseAmount(*u.Price)
		if err != nil {
			return models.MintDraft{}, fmt.Errorf("%w: %v", models.ErrInvalidPrice, err)
		}
		price = p
	}

	return c.edit(id, func(d *models.MintDraft) error {
		if u.Name != nil {
			d.Name = strings.TrimSpace(*u.Name)
		}
		if u.Description != nil {
			d.Description = strings.TrimSpace(*u.Description)
		}
		if u.ImageRef != nil {
			d.ImageRef = strings.TrimSpace(*u.ImageRef)
			d.ImageCID = ""
		}
		if price != nil {
			d.PriceMinor = price
		}
		return nil
	})
}

// AttachImage pins a generated image and makes the pinned URL the draft's
// image reference.
func (c *MintCoordinator) AttachImage(ctx context.Context, id uuid.UUID, imageBase64 string) (models.MintDraft, error) {
	data, err := base64.StdEncoding.DecodeString(stripDataURI(imageBase64))
	if err != nil {
		return models.MintDraft{}, fmt.Errorf("invalid image encoding: %w", err)
	}
	draft, err := c.Get(id)
	if err != nil {
		return models.MintDraft{}, err
	}
	name := draft.Name
	if name == "" {
		name = "nft-" + id.String()[:8]
	}

	pinned, err := c.pinner.Pin(ctx, data, name)
	if err != nil {
		return models.MintDraft{}, err
	}

	return c.edit(id, func(d *models.MintDraft) error {
		d.ImageRef = pinned.URL
		d.ImageCID = pinned.CID
		return nil
	})
}

// Next moves Describe to Price once name, description and image are set, and
// is a no-op otherwise.
func (c *MintCoordinator) Next(id uuid.UUID) (models.MintDraft, error) {
	return c.edit(id, func(d *models.MintDraft) error {
		if d.Step != models.MintStepDescribe || !d.ReadyForPrice() {
			return nil
		}
		d.Step = models.MintStepPrice
		return nil
	})
}

func (c *MintCoordinator) Back(id uuid.UUID) (models.MintDraft, error) {
	return c.edit(id, func(d *models.MintDraft) error {
		if !models.IsValidMintTransition(d.Step, models.MintStepDescribe) {
			return models.ErrInvalidStep
		}
		d.Step = models.MintStepDescribe
		return nil
	})
}

// SuggestPrice prices the draft description and pre-fills the price with the
// suggested point.
func (c *MintCoordinator) SuggestPrice(id uuid.UUID) (models.MintDraft, error) {
	return c.edit(id, func(d *models.MintDraft) error {
		s, err := c.pricer.SuggestChecked(d.Description)
		if err != nil {
			return err
		}
		d.Suggestion = &s
		d.PriceMinor = chain.FloatToWei(s.Point)
		return nil
	})
}

// Submit mints the draft from the account connected at call time. It never
// retries; on failure the draft returns to the price step with its data.
func (c *MintCoordinator) Submit(ctx context.Context, id uuid.UUID) (*models.MintResult, error) {
	account := c.session.Account()

	c.mu.Lock()
	e, ok := c.drafts[id]
	if !ok {
		c.mu.Unlock()
		return nil, models.ErrDraftNotFound
	}
	if e.submitting {
		c.mu.Unlock()
		return nil, models.ErrSubmissionInProgress
	}
	if e.draft.Step != models.MintStepPrice {
		c.mu.Unlock()
		return nil, models.ErrInvalidStep
	}
	if !e.draft.HasPrice() {
		c.mu.Unlock()
		return nil, models.ErrInvalidPrice
	}
	if account == "" {
		c.mu.Unlock()
		return nil, models.ErrWalletNotConnected
	}
	e.submitting = true
	e.draft.Step = models.MintStepSubmitting
	e.draft.LastError = ""
	d := copyDraft(e.draft)
	c.mu.Unlock()

	c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowMint, Action: "submitted", EntityID: d.ID.String(),
		Meta: map[string]any{"name": d.Name, "price_wei": d.PriceMinor.String()}})

	start := time.Now()
	result, err := c.mint(ctx, account, d)
	elapsed := time.Since(start)

	c.mu.Lock()
	e, stillOpen := c.drafts[id]
	if stillOpen {
		e.submitting = false
		if err != nil {
			e.draft.Step = models.MintStepPrice
			e.draft.LastError = models.UserMessage(err)
		} else {
			e.draft.Step = models.MintStepDone
			delete(c.drafts, id)
		}
	}
	c.mu.Unlock()

	if err != nil {
		metrics.RecordTxSubmission(flowMint, txOutcome(err), elapsed)
		c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowMint, Action: "failed", EntityID: d.ID.String(),
			Meta: map[string]any{"error": err.Error()}})
		c.log.Warn("mint failed", zap.String("draft_id", d.ID.String()), zap.String("account", account), zap.Error(err))
		return nil, err
	}

	metrics.RecordTxSubmission(flowMint, "confirmed", elapsed)
	c.catalog.Invalidate()
	c.rec.audit(models.AuditLog{ActorAddress: account, Flow: flowMint, Action: "confirmed", EntityID: result.TokenID, TxHash: result.TxHash})
	c.rec.confirmed(flowMint, account, result.TxHash, map[string]any{"token_id": result.TokenID})
	c.log.Info("nft minted",
		zap.String("token_id", result.TokenID),
		zap.String("account", account),
		zap.String("tx_hash", result.TxHash),
		zap.Bool("draft_discarded_early", !stillOpen),
	)
	return result, nil
}

func (c *MintCoordinator) mint(ctx context.Context, account string, d models.MintDraft) (*models.MintResult, error) {
	receipt, err := c.contract.Mint(ctx, account, d.Name, d.Description, d.ImageRef, d.PriceMinor)
	if err != nil {
		return nil, err
	}
	if !receipt.Success {
		return nil, fmt.Errorf("%w: %s", models.ErrTransactionReverted, receipt.TxHash)
	}
	ev, ok := receipt.FindEvent(models.EventNFTMinted)
	if !ok {
		return nil, fmt.Errorf("%w: no %s event in %s", models.ErrTransactionReverted, models.EventNFTMinted, receipt.TxHash)
	}
	tokenID, ok := chain.EventTokenID(ev)
	if !ok {
		return nil, fmt.Errorf("%w: malformed %s event", models.ErrTransactionReverted, models.EventNFTMinted)
	}
	result := &models.MintResult{TxHash: receipt.TxHash, TokenID: tokenID, Account: account, PriceMinor: d.PriceMinor}
	if creator, ok := chain.EventAddress(ev, "creator"); ok {
		result.Creator = creator
	}
	if price, ok := chain.EventPrice(ev); ok {
		result.PriceMinor = price
	}
	return result, nil
}

// edit applies fn to an open draft that is not being submitted.
func (c *MintCoordinator) edit(id uuid.UUID, fn func(d *models.MintDraft) error) (models.MintDraft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.drafts[id]
	if !ok {
		return models.MintDraft{}, models.ErrDraftNotFound
	}
	if e.submitting {
		return models.MintDraft{}, models.ErrSubmissionInProgress
	}
	next := copyDraft(e.draft)
	if err := fn(&next); err != nil {
		return models.MintDraft{}, err
	}
	e.draft = next
	return copyDraft(next), nil
}

func copyDraft(d models.MintDraft) models.MintDraft {
	if d.PriceMinor != nil {
		d.PriceMinor = new(big.Int).Set(d.PriceMinor)
	}
	if d.Suggestion != nil {
		s := *d.Suggestion
		d.Suggestion = &s
	}
	return d
}

func stripDataURI(s string) string {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

func txOutcome(err error) string {
	if errors.Is(err, models.ErrTransactionReverted) {
		return "reverted"
	}
	return "error"
}
