package config

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ProviderKeys holds the third-party API keys. An empty key disables the
// provider; requests against it report a missing_key source status.
type ProviderKeys struct {
	Jupiter    string
	BitQuery   string
	Birdeye    string
	Helius     string
	CoinGecko  string
	Santiment  string
	LunarCrush string
	Solscan    string
}

type Config struct {
	HTTPPort    int
	DatabaseURL string
	RedisURL    string
	APIAuthKey  string

	LogLevel  string
	LogFormat string

	Keys ProviderKeys

	OpenAIAPIKey string
	OpenAIModel  string

	TelegramBotToken string

	PricePollSecs      int
	SnapshotPollMins   int
	CacheTTLSecs       int
	SocialCacheTTLSecs int
	WhaleThresholdUSD  float64
	TrackedMints       []string
}

func Load() *Config {
	log := zap.L().Named("config")

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIAuthKey:       strings.TrimSpace(os.Getenv("API_AUTH_KEY")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:         strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:        strings.TrimSpace(os.Getenv("LOG_FORMAT")),
		Keys: ProviderKeys{
			Jupiter:    strings.TrimSpace(os.Getenv("JUPITER_API_KEY")),
			BitQuery:   strings.TrimSpace(os.Getenv("BITQUERY_API_KEY")),
			Birdeye:    strings.TrimSpace(os.Getenv("BIRDEYE_API_KEY")),
			Helius:     strings.TrimSpace(os.Getenv("HELIUS_API_KEY")),
			CoinGecko:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
			Santiment:  strings.TrimSpace(os.Getenv("SANTIMENT_API_KEY")),
			LunarCrush: strings.TrimSpace(os.Getenv("LUNARCRUSH_API_KEY")),
			Solscan:    strings.TrimSpace(os.Getenv("SOLSCAN_API_KEY")),
		},
		OpenAIAPIKey: strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, persistence disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.APIAuthKey == "" {
		log.Warn("API_AUTH_KEY not set, API key auth disabled")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Keys.Helius == "" {
		log.Warn("HELIUS_API_KEY not set, wallet balances unavailable")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, risk narratives use heuristics")
	}

	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)
	cfg.PricePollSecs = positiveInt("PRICE_POLL_SECS", 60)
	cfg.SnapshotPollMins = positiveInt("SNAPSHOT_POLL_MINS", 60)
	cfg.CacheTTLSecs = positiveInt("CACHE_TTL_SECS", 30)
	cfg.SocialCacheTTLSecs = positiveInt("SOCIAL_CACHE_TTL_SECS", 300)

	cfg.WhaleThresholdUSD = 10000
	if v := strings.TrimSpace(os.Getenv("WHALE_THRESHOLD_USD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.WhaleThresholdUSD = n
		}
	}

	for _, mint := range strings.Split(os.Getenv("TRACKED_MINTS"), ",") {
		if mint = strings.TrimSpace(mint); mint != "" {
			cfg.TrackedMints = append(cfg.TrackedMints, mint)
		}
	}

	return cfg
}

func positiveInt(name string, def int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
