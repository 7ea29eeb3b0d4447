package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nft-marketplace/backend/internal/metrics"
	"github.com/nft-marketplace/backend/internal/models"
	"github.com/nft-marketplace/backend/internal/recommend"
	"go.uber.org/zap"
)

var welcomeTexts = []string{
	"Welcome to DeFAI Smart Buyer! I'm your AI assistant for NFT purchases. Ask me anything about NFTs, pricing, or market trends.",
	"Some things you can ask me:\n- What NFTs are trending right now?\n- Is this a good time to buy?\n- What's a fair price for this collection?\n- Help me find unique AI-generated art",
}

var noMatchTexts = []string{
	"I couldn't find any NFTs matching your specific criteria. Try searching with different keywords or browse our trending section.",
	"No exact matches found. Consider exploring our marketplace using the filters for more targeted results.",
	"I don't have NFTs that precisely match your request. Would you like to see trending NFTs instead?",
}

// ChatService keeps conversations in memory for as long as they are open.
type ChatService struct {
	matcher recommend.Matcher
	catalog *CatalogService
	log     *zap.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	sessions map[uuid.UUID]*models.ChatSession
}

func NewChatService(matcher recommend.Matcher, catalog *CatalogService, seed uint64, log *zap.Logger) *ChatService {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &ChatService{
		matcher:  matcher,
		catalog:  catalog,
		log:      log,
		rng:      rand.New(rand.NewPCG(seed, ^seed)),
		sessions: make(map[uuid.UUID]*models.ChatSession),
	}
}

// Open starts a conversation with the welcome turns.
func (s *ChatService) Open() models.ChatSession {
	now := time.Now()
	session := &models.ChatSession{ID: uuid.New(), OpenedAt: now}
	for _, text := range welcomeTexts {
		session.Turns = append(session.Turns, models.ChatTurn{
			ID: uuid.New(), Sender: models.SenderAssistant, Text: text, Timestamp: now,
		})
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return copySession(session)
}

func (s *ChatService) Get(id uuid.UUID) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.ChatSession{}, models.ErrSessionNotFound
	}
	return copySession(session), nil
}

func (s *ChatService) Close(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return models.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Send appends the user's turn and the assistant's answer and returns both.
// Recommendation service failures become an apology turn, not an error.
func (s *ChatService) Send(ctx context.Context, id uuid.UUID, text string) ([]models.ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}
	userTurn := models.ChatTurn{ID: uuid.New(), Sender: models.SenderUser, Text: text, Timestamp: time.Now()}
	if err := s.appendTurns(id, userTurn); err != nil {
		return nil, err
	}

	reply, err := s.answer(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.appendTurns(id, reply); err != nil {
		// closed while the answer was being computed
		return nil, err
	}
	return []models.ChatTurn{userTurn, reply}, nil
}

func (s *ChatService) answer(ctx context.Context, text string) (models.ChatTurn, error) {
	turn := models.ChatTurn{ID: uuid.New(), Sender: models.SenderAssistant}
	strategy := s.matcher.Strategy()

	catalog, err := s.catalog.List(ctx)
	if err == nil {
		var rec recommend.Recommendation
		rec, err = s.matcher.Match(ctx, text, catalog)
		if err == nil {
			metrics.RecordRecommendation(strategy, string(rec.Outcome))
			turn.Matches = rec.Listings
			turn.Text = s.describe(rec)
			turn.Timestamp = time.Now()
			return turn, nil
		}
	}
	if errors.Is(err, context.Canceled) {
		return models.ChatTurn{}, err
	}

	metrics.RecordRecommendation(strategy, "error")
	s.log.Warn("recommendation failed", zap.String("strategy", strategy), zap.Error(err))
	if !errors.Is(err, models.ErrRecommendationService) {
		err = fmt.Errorf("%w: %v", models.ErrRecommendationService, err)
	}
	turn.Text = models.UserMessage(err)
	turn.Timestamp = time.Now()
	return turn, nil
}

func (s *ChatService) describe(rec recommend.Recommendation) string {
	if rec.Outcome == recommend.OutcomeNoMatch || len(rec.Listings) == 0 {
		s.mu.Lock()
		text := noMatchTexts[s.rng.IntN(len(noMatchTexts))]
		s.mu.Unlock()
		if len(rec.Listings) > 0 {
			text += " Here are a few you might like:"
		}
		return text
	}
	return fmt.Sprintf("I found %d NFTs that match your criteria:", len(rec.Listings))
}

func (s *ChatService) appendTurns(id uuid.UUID, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.ErrSessionNotFound
	}
	session.Turns = append(session.Turns, turns...)
	return nil
}

func copySession(s *models.ChatSession) models.ChatSession {
	out := *s
	out.Turns = append([]models.ChatTurn(nil), s.Turns...)
	return out
}
