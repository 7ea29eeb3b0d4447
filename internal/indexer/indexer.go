package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nft-marketplace/backend/internal/chain"
	"github.com/nft-marketplace/backend/internal/events"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisCursorBlock = "chain-indexer:cursor:block"
	redisProcessed   = "chain-indexer:log:"
	processedTTL     = 7 * 24 * time.Hour
	// maxBlockRange bounds a single eth_getLogs query; most RPC providers
	// reject wider ranges.
	maxBlockRange = 2000
)

// Source is the part of the chain client the indexer reads from.
type Source interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FilterMarketEvents(ctx context.Context, from, to uint64) ([]chain.MarketEventLog, error)
}

// Indexer turns contract mint and purchase logs into market events.
type Indexer struct {
	source     Source
	rdb        *redis.Client
	publisher  events.Publisher
	startBlock uint64
	log        *zap.Logger
}

func New(source Source, rdb *redis.Client, publisher events.Publisher, startBlock uint64, log *zap.Logger) *Indexer {
	return &Indexer{source: source, rdb: rdb, publisher: publisher, startBlock: startBlock, log: log}
}

// InitCursor sets the cursor on first run. Without a configured start block
// it starts at the current head, so history is skipped.
func (ix *Indexer) InitCursor(ctx context.Context) error {
	existing, err := ix.rdb.Get(ctx, redisCursorBlock).Result()
	if err == nil && existing != "" {
		ix.log.Info("resuming from saved cursor", zap.String("block", existing))
		return nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load cursor: %w", err)
	}

	if ix.startBlock > 0 {
		ix.log.Info("cursor initialized from INDEXER_START_BLOCK", zap.Uint64("block", ix.startBlock))
		return ix.saveCursor(ctx, ix.startBlock-1)
	}

	head, err := ix.source.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("get head for cursor init: %w", err)
	}
	ix.log.Info("cursor initialized at head (skipping historical events)", zap.Uint64("block", head))
	return ix.saveCursor(ctx, head)
}

// Cursor returns the last fully processed block.
func (ix *Indexer) Cursor(ctx context.Context) uint64 {
	val, err := ix.rdb.Get(ctx, redisCursorBlock).Result()
	if err != nil || val == "" {
		return 0
	}
	block, _ := strconv.ParseUint(val, 10, 64)
	return block
}

func (ix *Indexer) saveCursor(ctx context.Context, block uint64) error {
	return ix.rdb.Set(ctx, redisCursorBlock, strconv.FormatUint(block, 10), 0).Err()
}

// PollOnce processes the blocks after the cursor, at most maxBlockRange of
// them, and advances the cursor only if every event was published.
func (ix *Indexer) PollOnce(ctx context.Context) error {
	cursor := ix.Cursor(ctx)

	head, err := ix.source.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}
	if head <= cursor {
		return nil
	}

	from, to := cursor+1, head
	if to-from+1 > maxBlockRange {
		to = from + maxBlockRange - 1
	}

	logs, err := ix.source.FilterMarketEvents(ctx, from, to)
	if err != nil {
		return fmt.Errorf("filter events: %w", err)
	}
	if len(logs) > 0 {
		ix.log.Info("found market events", zap.Int("count", len(logs)), zap.Uint64("from", from), zap.Uint64("to", to))
	}

	for _, lg := range logs {
		if err := ix.process(ctx, lg); err != nil {
			return err
		}
	}
	return ix.saveCursor(ctx, to)
}

func (ix *Indexer) process(ctx context.Context, lg chain.MarketEventLog) error {
	// Idempotency: skip if already processed
	key := fmt.Sprintf("%s%s:%d", redisProcessed, lg.TxHash, lg.LogIndex)
	if ix.rdb.Exists(ctx, key).Val() > 0 {
		return nil
	}

	event, ok := marketEvent(lg)
	if !ok {
		ix.log.Warn("unexpected contract event", zap.String("event", lg.Event.Name), zap.String("tx_hash", lg.TxHash))
		ix.rdb.Set(ctx, key, "skip", processedTTL)
		return nil
	}

	if err := ix.publisher.Publish(ctx, events.StreamMarket, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	metrics.RecordIndexedEvent(event.Type)
	ix.rdb.Set(ctx, key, event.Type, processedTTL)

	ix.log.Info("market event indexed",
		zap.String("type", event.Type),
		zap.Any("token_id", event.Payload["token_id"]),
		zap.String("tx_hash", lg.TxHash),
		zap.Uint64("block", lg.BlockNumber),
	)
	return nil
}

func marketEvent(lg chain.MarketEventLog) (events.Event, bool) {
	tokenID, ok := chain.EventTokenID(lg.Event)
	if !ok {
		return events.Event{}, false
	}
	payload := map[string]any{
		"token_id": tokenID,
		"tx_hash":  lg.TxHash,
		"block":    lg.BlockNumber,
	}
	if price, ok := chain.EventPrice(lg.Event); ok {
		payload["price_minor"] = price.String()
		payload["price"] = chain.FormatAmount(price)
	}

	switch lg.Event.Name {
	case models.EventNFTMinted:
		payload["creator"], _ = chain.EventAddress(lg.Event, "creator")
		return events.Event{Type: events.EventListingMinted, Payload: payload}, true
	case models.EventNFTPurchased:
		payload["buyer"], _ = chain.EventAddress(lg.Event, "buyer")
		return events.Event{Type: events.EventListingPurchased, Payload: payload}, true
	default:
		return events.Event{}, false
	}
}
