package indexer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	head    uint64
	logs    []chain.MarketEventLog
	queries [][2]uint64
}

func (s *fakeSource) LatestBlock(context.Context) (uint64, error) { return s.head, nil }

func (s *fakeSource) FilterMarketEvents(_ context.Context, from, to uint64) ([]chain.MarketEventLog, error) {
	s.queries = append(s.queries, [2]uint64{from, to})
	var out []chain.MarketEventLog
	for _, lg := range s.logs {
		if lg.BlockNumber >= from && lg.BlockNumber <= to {
			out = append(out, lg)
		}
	}
	return out, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *memPublisher) Publish(_ context.Context, stream string, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if stream == events.StreamMarket {
		p.events = append(p.events, e)
	}
	return nil
}

func minted(block uint64, idx uint, tokenID int64) chain.MarketEventLog {
	return chain.MarketEventLog{
		Event: models.TxEvent{Name: models.EventNFTMinted, Fields: map[string]any{
			"tokenId": big.NewInt(tokenID), "creator": "0xA1", "price": big.NewInt(500_000_000_000_000_000),
		}},
		TxHash:      "0xmint",
		LogIndex:    idx,
		BlockNumber: block,
	}
}

func purchased(block uint64, idx uint, tokenID int64) chain.MarketEventLog {
	return chain.MarketEventLog{
		Event: models.TxEvent{Name: models.EventNFTPurchased, Fields: map[string]any{
			"tokenId": big.NewInt(tokenID), "buyer": "0xB2", "price": big.NewInt(1),
		}},
		TxHash:      "0xbuy",
		LogIndex:    idx,
		BlockNumber: block,
	}
}

func newIndexer(t *testing.T, src Source, pub events.Publisher, start uint64) (*Indexer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(src, rdb, pub, start, zap.NewNop()), mr
}

func TestInitCursor(t *testing.T) {
	ctx := context.Background()

	ix, mr := newIndexer(t, &fakeSource{head: 500}, &memPublisher{}, 0)
	require.NoError(t, ix.InitCursor(ctx))
	assert.Equal(t, uint64(500), ix.Cursor(ctx))

	require.NoError(t, mr.Set(redisCursorBlock, "42"))
	require.NoError(t, ix.InitCursor(ctx))
	assert.Equal(t, uint64(42), ix.Cursor(ctx), "saved cursor wins")

	ix, _ = newIndexer(t, &fakeSource{head: 500}, &memPublisher{}, 100)
	require.NoError(t, ix.InitCursor(ctx))
	assert.Equal(t, uint64(99), ix.Cursor(ctx))
}

func TestPollOnce_PublishesAndAdvances(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{head: 20, logs: []chain.MarketEventLog{minted(12, 0, 7), purchased(15, 3, 7)}}
	pub := &memPublisher{}
	ix, mr := newIndexer(t, src, pub, 10)
	require.NoError(t, ix.InitCursor(ctx))

	require.NoError(t, ix.PollOnce(ctx))
	assert.Equal(t, [][2]uint64{{10, 20}}, src.queries)
	assert.Equal(t, uint64(20), ix.Cursor(ctx))

	require.Len(t, pub.events, 2)
	assert.Equal(t, events.EventListingMinted, pub.events[0].Type)
	assert.Equal(t, "7", pub.events[0].Payload["token_id"])
	assert.Equal(t, "0xA1", pub.events[0].Payload["creator"])
	assert.Equal(t, "0.5", pub.events[0].Payload["price"])
	assert.Equal(t, events.EventListingPurchased, pub.events[1].Type)
	assert.Equal(t, "0xB2", pub.events[1].Payload["buyer"])
	assert.True(t, mr.Exists(redisProcessed+"0xbuy:3"))

	// nothing new at the same head
	require.NoError(t, ix.PollOnce(ctx))
	assert.Len(t, src.queries, 1)
}

func TestPollOnce_SkipsProcessedLogs(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{head: 20, logs: []chain.MarketEventLog{minted(12, 0, 7)}}
	pub := &memPublisher{}
	ix, mr := newIndexer(t, src, pub, 10)
	require.NoError(t, ix.InitCursor(ctx))
	require.NoError(t, mr.Set(redisProcessed+"0xmint:0", events.EventListingMinted))

	require.NoError(t, ix.PollOnce(ctx))
	assert.Empty(t, pub.events)
	assert.Equal(t, uint64(20), ix.Cursor(ctx))
}

func TestPollOnce_PublishFailureKeepsCursor(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{head: 20, logs: []chain.MarketEventLog{minted(12, 0, 7)}}
	pub := &memPublisher{err: errors.New("redis down")}
	ix, mr := newIndexer(t, src, pub, 10)
	require.NoError(t, ix.InitCursor(ctx))

	require.Error(t, ix.PollOnce(ctx))
	assert.Equal(t, uint64(9), ix.Cursor(ctx))
	assert.False(t, mr.Exists(redisProcessed+"0xmint:0"))

	pub.err = nil
	require.NoError(t, ix.PollOnce(ctx))
	assert.Len(t, pub.events, 1)
}

func TestPollOnce_BoundsBlockRange(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{head: 5000}
	ix, _ := newIndexer(t, src, &memPublisher{}, 1)
	require.NoError(t, ix.InitCursor(ctx))

	require.NoError(t, ix.PollOnce(ctx))
	require.NoError(t, ix.PollOnce(ctx))
	assert.Equal(t, [][2]uint64{{1, 2000}, {2001, 4000}}, src.queries)
	assert.Equal(t, uint64(4000), ix.Cursor(ctx))
}

func TestMarketEvent_RejectsUnknown(t *testing.T) {
	_, ok := marketEvent(chain.MarketEventLog{Event: models.TxEvent{Name: "Transfer", Fields: map[string]any{"tokenId": big.NewInt(1)}}})
	assert.False(t, ok)
	_, ok = marketEvent(chain.MarketEventLog{Event: models.TxEvent{Name: models.EventNFTMinted}})
	assert.False(t, ok)
}
