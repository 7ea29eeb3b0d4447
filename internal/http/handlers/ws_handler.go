package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/wallet"
	"go.uber.org/zap"
)

// relayedStreams are forwarded to every connected client.
var relayedStreams = []string{events.StreamTx, events.StreamMarket}

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// wsClient serializes writes; websocket connections allow one writer at a time.
type wsClient struct {
	mu   sync.Mutex
	conn messageWriter
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub pushes account changes and confirmed transactions to the UI.
type WSHub struct {
	session    *wallet.Session
	subscriber events.Subscriber
	log        *zap.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient
}

func NewWSHub(session *wallet.Session, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		session:    session,
		subscriber: subscriber,
		log:        log,
		clients:    make(map[uuid.UUID]*wsClient),
	}
}

// Start relays the tx and market streams until ctx is cancelled.
func (h *WSHub) Start(ctx context.Context) error {
	for _, stream := range relayedStreams {
		if err := h.subscriber.Subscribe(ctx, stream, h.broadcast); err != nil {
			return fmt.Errorf("ws hub: %w", err)
		}
	}
	return nil
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.send(data)
	}
}

// register adds a client, subscribes it to the wallet session and sends the
// current account. The returned func undoes the registration.
func (h *WSHub) register(conn messageWriter) func() {
	id := uuid.New()
	client := &wsClient{conn: conn}

	h.mu.Lock()
	h.clients[id] = client
	h.mu.Unlock()

	unsubscribe := h.session.Subscribe(func(s wallet.State) {
		data, err := json.Marshal(accountEvent(s))
		if err != nil {
			return
		}
		_ = client.send(data)
	})
	if data, err := json.Marshal(accountEvent(h.session.Snapshot())); err == nil {
		_ = client.send(data)
	}

	return func() {
		unsubscribe()
		h.mu.Lock()
		delete(h.clients, id)
		h.mu.Unlock()
	}
}

func accountEvent(s wallet.State) events.Event {
	return events.Event{
		Type: events.EventWalletAccountChanged,
		Payload: map[string]any{
			"account":   s.Account,
			"connected": s.Connected(),
		},
	}
}

// ClientCount reports the number of open connections.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	unregister := h.register(conn)
	defer func() {
		unregister()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.log.Debug("websocket closed")
}
