package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

type ChatTurn struct {
	ID        uuid.UUID      `json:"id"`
	Sender    string         `json:"sender"`
	Text      string         `json:"text,omitempty"`
	Matches   []AssetListing `json:"matches,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type ChatSession struct {
	ID       uuid.UUID  `json:"id"`
	Turns    []ChatTurn `json:"turns"`
	OpenedAt time.Time  `json:"opened_at"`
}
