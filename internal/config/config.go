package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nft-marketplace/backend/internal/models"
	"go.uber.org/zap"
)

type Config struct {
	// Storage / messaging
	RedisURL    string
	PostgresDSN string // optional, enables the submission audit trail

	// Chain
	ChainRPCURL        string
	ChainID            int64
	ContractAddress    string
	WalletPrivateKeys  []string // hex, order defines the provider's account order
	WalletRejectAccess bool
	TxConfirmTimeout   time.Duration

	// Image generation
	ImageAPIURL          string
	ImageAPIToken        string
	ImageProviders       []string // model ids, tried in order
	ImageProviderTimeout time.Duration

	// Conversational ranking
	ChatAPIURL        string
	ChatAPIKey        string
	ChatModel         string
	ChatTimeout       time.Duration
	RecommendStrategy string // local/remote

	// Content pinning
	PinningAPIURL     string
	PinningJWT        string
	ContentGatewayURL string
	PinningTimeout    time.Duration

	// Indexer
	IndexerPollInterval time.Duration
	IndexerStartBlock   uint64

	// RNGSeed seeds the price jitter and the randomized recommendation
	// fallback; 0 means time-seeded.
	RNGSeed uint64

	// Server
	APIPort         string
	RateLimitPerMin int
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),

		ChainRPCURL:        getEnv("CHAIN_RPC_URL", "https://rpc.blaze.soniclabs.com"),
		ChainID:            int64(getEnvInt("CHAIN_ID", 57054)),
		ContractAddress:    getEnv("CONTRACT_ADDRESS", ""),
		WalletPrivateKeys:  parseList(getEnv("WALLET_PRIVATE_KEYS", "")),
		WalletRejectAccess: getEnvBool("WALLET_REJECT_ACCESS", false),
		TxConfirmTimeout:   getEnvSeconds("TX_CONFIRM_TIMEOUT_SECONDS", 120),

		ImageAPIURL:          getEnv("IMAGE_API_URL", "https://api-inference.huggingface.co/models"),
		ImageAPIToken:        getEnv("IMAGE_API_TOKEN", ""),
		ImageProviders:       parseList(getEnv("IMAGE_PROVIDERS", "stabilityai/stable-diffusion-xl-base-1.0,runwayml/stable-diffusion-v1-5,prompthero/openjourney")),
		ImageProviderTimeout: getEnvSeconds("IMAGE_PROVIDER_TIMEOUT_SECONDS", 60),

		ChatAPIURL:        getEnv("CHAT_API_URL", "https://models.inference.ai.azure.com"),
		ChatAPIKey:        getEnv("CHAT_API_KEY", ""),
		ChatModel:         getEnv("CHAT_MODEL", "gpt-4o"),
		ChatTimeout:       getEnvSeconds("CHAT_TIMEOUT_SECONDS", 30),
		RecommendStrategy: strings.ToLower(getEnv("RECOMMEND_STRATEGY", "local")),

		PinningAPIURL:     getEnv("PINNING_API_URL", "https://api.pinata.cloud"),
		PinningJWT:        getEnv("PINNING_JWT", ""),
		ContentGatewayURL: getEnv("CONTENT_GATEWAY_URL", ""),
		PinningTimeout:    getEnvSeconds("PINNING_TIMEOUT_SECONDS", 30),

		IndexerPollInterval: getEnvSeconds("INDEXER_POLL_SECONDS", 5),
		IndexerStartBlock:   uint64(getEnvInt("INDEXER_START_BLOCK", 0)),

		RNGSeed: uint64(getEnvInt("RNG_SEED", 0)),

		APIPort:         getEnv("API_PORT", "3000"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 100),
	}

	return cfg
}

// Validate logs what is missing at startup. Individual services still refuse
// to run through Require when their own settings are absent.
func (c *Config) Validate(log *zap.Logger) {
	if c.ContractAddress == "" {
		log.Warn("CONTRACT_ADDRESS is not set, contract calls will fail")
	}
	if len(c.WalletPrivateKeys) == 0 {
		log.Warn("WALLET_PRIVATE_KEYS is not set, no wallet provider available")
	}
	if c.ImageAPIToken == "" {
		log.Warn("IMAGE_API_TOKEN is not set, image generation disabled")
	}
	if c.PinningJWT == "" || c.ContentGatewayURL == "" {
		log.Warn("PINNING_JWT or CONTENT_GATEWAY_URL is not set, image pinning disabled")
	}
	if c.RecommendStrategy == "remote" && c.ChatAPIKey == "" {
		log.Warn("RECOMMEND_STRATEGY=remote but CHAT_API_KEY is not set")
	}
}

// Require returns ErrConfigurationMissing naming every empty variable.
func Require(vars map[string]string) error {
	var missing []string
	for name, v := range vars {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %s", models.ErrConfigurationMissing, strings.Join(missing, ", "))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var items []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}
