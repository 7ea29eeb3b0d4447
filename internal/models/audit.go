package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records one client-side submission attempt; it is not a copy of
// marketplace state.
type AuditLog struct {
	ID           uuid.UUID `json:"id"`
	ActorAddress string    `json:"actor_address"`
	Flow         string    `json:"flow"` // mint/buy
	Action       string    `json:"action"`
	EntityID     string    `json:"entity_id"`
	TxHash       string    `json:"tx_hash,omitempty"`
	Meta         any       `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
