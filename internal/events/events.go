package events

import "context"

// Streams
const (
	StreamTx             = "events:tx"
	StreamMarket         = "events:market"
	StreamWalletProvider = "events:wallet-provider"
)

// Event types
const (
	EventWalletAccountChanged = "wallet_account_changed"
	EventAccountsChanged      = "accounts_changed"
	EventTxConfirmed          = "tx_confirmed"
	EventListingMinted        = "listing_minted"
	EventListingPurchased     = "listing_purchased"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
