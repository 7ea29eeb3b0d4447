package services

import (
	"context"
	"time"

	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// Auditor records submission attempts. *repositories.AuditRepo implements it.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// NopAuditor is used when no audit database is configured.
type NopAuditor struct{}

func (NopAuditor) Log(context.Context, models.AuditLog) error { return nil }

// txRecorder is shared by the coordinators: audit entry, event and log for
// every submission outcome.
type txRecorder struct {
	auditor   Auditor
	publisher events.Publisher
	log       *zap.Logger
}

func (r txRecorder) audit(entry models.AuditLog) {
	// detached from the caller's context
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.auditor.Log(ctx, entry); err != nil {
		r.log.Error("failed to write audit entry", zap.String("flow", entry.Flow), zap.String("action", entry.Action), zap.Error(err))
	}
}

func (r txRecorder) confirmed(flow, account, txHash string, payload map[string]any) {
	payload["flow"] = flow
	payload["account"] = account
	payload["tx_hash"] = txHash
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.publisher.Publish(ctx, events.StreamTx, events.Event{Type: events.EventTxConfirmed, Payload: payload}); err != nil {
		r.log.Error("failed to publish tx event", zap.String("tx_hash", txHash), zap.Error(err))
	}
}
