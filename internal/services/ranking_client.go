package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nft-marketplace/backend/internal/config"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// RankingClient calls an OpenAI-compatible chat completion endpoint.
type RankingClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewRankingClient(apiURL, apiKey, model string, timeout time.Duration, log *zap.Logger) *RankingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RankingClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
}

// Complete returns the first choice's message content.
func (c *RankingClient) Complete(ctx context.Context, system, user string) (string, error) {
	if err := config.Require(map[string]string{
		"CHAT_API_URL": c.apiURL,
		"CHAT_API_KEY": c.apiKey,
		"CHAT_MODEL":   c.model,
	}); err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		TopP:        1.0,
		MaxTokens:   1000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ranking service unavailable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ranking service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("ranking response has no content: %s", string(body))
	}
	c.log.Debug("ranking completed", zap.String("model", c.model), zap.Duration("elapsed", time.Since(start)))
	return content.String(), nil
}
