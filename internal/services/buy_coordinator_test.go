package services

import (
	"context"
	"math/big"
	"testing"

	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newBuyCoordinator(c *fakeContract, account string) (*BuyCoordinator, *memAuditor, *memPublisher) {
	aud, pub := &memAuditor{}, &memPublisher{}
	return NewBuyCoordinator(c, connectedSession(account), newCatalog(c), aud, pub, zap.NewNop()), aud, pub
}

func TestBuy_Guard(t *testing.T) {
	listing := models.AssetListing{ID: "7", Owner: alice, PriceMinor: big.NewInt(100)}
	tests := []struct {
		name    string
		account string
		wantErr error
	}{
		{"not connected", "", models.ErrWalletNotConnected},
		{"own listing, different case", "0x00000000000000000000000000000000000000a1", models.ErrSelfPurchaseDisallowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeContract{}
			bc, aud, _ := newBuyCoordinator(c, tt.account)

			_, err := bc.Buy(context.Background(), listing)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, c.networkCalls())
			assert.Empty(t, aud.actions())
			assert.Equal(t, models.BuyStateIdle, bc.State("7"))
		})
	}
}

func TestBuyByID_GuardRunsBeforeCatalogRead(t *testing.T) {
	c := &fakeContract{listings: []models.AssetListing{{ID: "7", Owner: alice, PriceMinor: big.NewInt(100)}}}
	bc, aud, _ := newBuyCoordinator(c, "")

	for _, id := range []string{"7", "999"} {
		_, err := bc.BuyByID(context.Background(), id)
		assert.ErrorIs(t, err, models.ErrWalletNotConnected)
	}
	assert.Equal(t, 0, c.listCalls)
	assert.Equal(t, 0, c.networkCalls())
	assert.Empty(t, aud.actions())
	assert.Equal(t, models.BuyStateIdle, bc.State("7"))
}

func TestBuyByID_ResolvesListing(t *testing.T) {
	c := &fakeContract{
		listings: []models.AssetListing{{ID: "7", Owner: alice, PriceMinor: big.NewInt(100)}},
		receipt:  purchasedReceipt(7, bob, big.NewInt(100)),
	}

	bc, _, _ := newBuyCoordinator(c, alice)
	_, err := bc.BuyByID(context.Background(), "7")
	assert.ErrorIs(t, err, models.ErrSelfPurchaseDisallowed)
	_, err = bc.BuyByID(context.Background(), "999")
	assert.ErrorIs(t, err, models.ErrListingNotFound)
	assert.Equal(t, 0, c.networkCalls())

	bc, _, _ = newBuyCoordinator(c, bob)
	purchase, err := bc.BuyByID(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, bob, purchase.Buyer)
	require.Len(t, c.buyCalls, 1)
	assert.Equal(t, 0, c.buyCalls[0].value.Cmp(big.NewInt(100)))
	assert.Equal(t, models.BuyStateIdle, bc.State("7"))
}

func TestBuy_UsesEventDataAndSnapshotAccount(t *testing.T) {
	paid := big.NewInt(90)
	c := &fakeContract{
		receipt: purchasedReceipt(7, bob, paid),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	bc, aud, pub := newBuyCoordinator(c, bob)
	listing := models.AssetListing{ID: "7", Owner: alice, PriceMinor: big.NewInt(100)}

	done := make(chan struct{})
	var purchase *models.Purchase
	var err error
	go func() {
		purchase, err = bc.Buy(context.Background(), listing)
		close(done)
	}()

	<-c.started
	assert.Equal(t, models.BuyStateSubmitting, bc.State("7"))
	bc.session.OnAccountsChanged([]string{"0x00000000000000000000000000000000000000C3"})
	close(c.release)
	<-done

	require.NoError(t, err)
	assert.Equal(t, "7", purchase.TokenID)
	assert.Equal(t, bob, purchase.Buyer)
	assert.Equal(t, bob, purchase.Account)
	assert.Equal(t, 0, purchase.PriceMinor.Cmp(paid), "price comes from the event, not the listing")

	require.Len(t, c.buyCalls, 1)
	assert.Equal(t, bob, c.buyCalls[0].from)
	assert.Equal(t, 0, c.buyCalls[0].value.Cmp(big.NewInt(100)))

	assert.Equal(t, []string{"buy:submitted", "buy:confirmed"}, aud.actions())
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.EventTxConfirmed, pub.events[0].Type)
	assert.Equal(t, models.BuyStateIdle, bc.State("7"))
}

func TestBuy_RejectsConcurrentPurchase(t *testing.T) {
	c := &fakeContract{
		receipt: purchasedReceipt(7, bob, big.NewInt(1)),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	bc, _, _ := newBuyCoordinator(c, bob)
	listing := models.AssetListing{ID: "7", Owner: alice, PriceMinor: big.NewInt(1)}

	errs := make(chan error, 1)
	go func() {
		_, err := bc.Buy(context.Background(), listing)
		errs <- err
	}()
	<-c.started

	_, err := bc.Buy(context.Background(), listing)
	assert.ErrorIs(t, err, models.ErrSubmissionInProgress)

	close(c.release)
	require.NoError(t, <-errs)
	assert.Len(t, c.buyCalls, 1)
}

func TestBuy_Failures(t *testing.T) {
	tests := []struct {
		name    string
		receipt *models.TxReceipt
		txErr   error
		wantErr error
	}{
		{"reverted receipt", &models.TxReceipt{TxHash: "0x1", Success: false}, nil, models.ErrTransactionReverted},
		{"missing event", &models.TxReceipt{TxHash: "0x1", Success: true}, nil, models.ErrTransactionReverted},
		{"malformed event", &models.TxReceipt{TxHash: "0x1", Success: true, Events: []models.TxEvent{{Name: models.EventNFTPurchased, Fields: map[string]any{}}}}, nil, models.ErrTransactionReverted},
		{"transport error", nil, models.ErrConfigurationMissing, models.ErrConfigurationMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeContract{receipt: tt.receipt, txErr: tt.txErr}
			bc, aud, pub := newBuyCoordinator(c, bob)

			_, err := bc.Buy(context.Background(), models.AssetListing{ID: "7", Owner: alice, PriceMinor: big.NewInt(1)})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, c.buyCalls, 1, "no automatic retry")
			assert.Equal(t, models.BuyStateIdle, bc.State("7"))
			assert.Equal(t, []string{"buy:submitted", "buy:failed"}, aud.actions())
			assert.Empty(t, pub.events)
		})
	}
}
