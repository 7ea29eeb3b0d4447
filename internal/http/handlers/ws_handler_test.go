package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/wallet"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []events.Event
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	c.mu.Lock()
	c.frames = append(c.frames, e)
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, e := range c.frames {
		out[i] = e.Type
	}
	return out
}

func TestWSHub_SessionSubscriptionFollowsConnection(t *testing.T) {
	session := wallet.NewSession(nil, zap.NewNop())
	hub := NewWSHub(session, nil, zap.NewNop())

	conn := &recordingConn{}
	unregister := hub.register(conn)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, session.ListenerCount())

	session.OnAccountsChanged([]string{"0xabc"})
	require.Equal(t, []string{events.EventWalletAccountChanged, events.EventWalletAccountChanged}, conn.types())
	assert.Equal(t, "0xabc", conn.frames[1].Payload["account"])
	assert.Equal(t, true, conn.frames[1].Payload["connected"])

	unregister()
	unregister()
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, session.ListenerCount())

	session.OnAccountsChanged(nil)
	assert.Len(t, conn.types(), 2)
}

func TestWSHub_RelaysRedisStreams(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewWSHub(wallet.NewSession(nil, zap.NewNop()), events.NewRedisSubscriber(rdb, zap.NewNop()), zap.NewNop())
	require.NoError(t, hub.Start(ctx))

	conn := &recordingConn{}
	defer hub.register(conn)()

	pub := events.NewRedisPublisher(rdb, zap.NewNop())
	require.NoError(t, pub.Publish(ctx, events.StreamTx, events.Event{Type: events.EventTxConfirmed}))
	require.NoError(t, pub.Publish(ctx, events.StreamMarket, events.Event{Type: events.EventListingMinted}))

	assert.Eventually(t, func() bool { return len(conn.types()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{events.EventWalletAccountChanged, events.EventTxConfirmed, events.EventListingMinted}, conn.types())
}
