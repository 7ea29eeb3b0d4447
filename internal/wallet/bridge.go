package wallet

import (
	"context"

	"github.com/nft-marketplace/backend/internal/events"
	"go.uber.org/zap"
)

// Bridge forwards accountsChanged notifications published by an external
// wallet relay to the session.
type Bridge struct {
	session    *Session
	subscriber events.Subscriber
	log        *zap.Logger
}

func NewBridge(session *Session, subscriber events.Subscriber, log *zap.Logger) *Bridge {
	return &Bridge{session: session, subscriber: subscriber, log: log}
}

// Start subscribes to the provider stream until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, events.StreamWalletProvider, func(e events.Event) {
		if e.Type != events.EventAccountsChanged {
			b.log.Debug("ignoring wallet provider event", zap.String("type", e.Type))
			return
		}
		b.session.OnAccountsChanged(AccountsFromPayload(e.Payload))
	})
}

// AccountsFromPayload reads the "accounts" list of a decoded JSON payload.
func AccountsFromPayload(payload map[string]any) []string {
	raw, _ := payload["accounts"].([]any)
	accounts := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			accounts = append(accounts, s)
		}
	}
	return accounts
}
