package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"macd-vol-bot/models"
)

// ScoreWeights are the confidence sub-score weights. They must sum to 1.0.
type ScoreWeights struct {
	Momentum   float64 // MACD momentum consistency
	Volatility float64 // ATR-percentile health
	RangePos   float64 // proximity to key levels
	Volume     float64 // volume confirmation
}

// Config holds all engine configuration. Values are read once at startup
// and passed explicitly into every evaluation call; nothing reads the
// environment after Load returns.
type Config struct {
	Symbols              []string
	Timeframes           []string
	ConfluenceTimeframes []string

	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int

	ATRPeriod        int
	ATRLowQuantile   float64
	ATRHighQuantile  float64
	PercentileWindow int

	HistDeltaThreshold float64

	ShadowRatio        float64
	SpikeATRMultiplier float64
	VolumeMultiplier   float64
	VolumeLookback     int

	Weights ScoreWeights

	CooldownMinutes  int
	MaxValidMinutes  int
	HistoryLimit     int
	KeyLevelLookback int
	PollIntervalSec  int

	ConfluenceATRFilter bool
	ConfluenceEnabled   bool
	SpikeEnabled        bool

	WecomWebhookURL string
	TelegramToken   string
	TelegramChatID  int64
	OpenAIAPIKey    string
	LLMEnabled      bool
	LLMModel        string

	PostgresDSN string
	StateFile   string

	RequestTimeout int // seconds
	LogLevel       string
}

// Load initializes configuration from environment variables and validates
// it. Validation failures are fatal: a misconfigured engine must not start.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		Symbols:              getEnvListWithDefault("SYMBOLS", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}),
		Timeframes:           getEnvListWithDefault("TIMEFRAMES", []string{"15m", "1h", "4h"}),
		ConfluenceTimeframes: getEnvListWithDefault("CONFLUENCE_TIMEFRAMES", []string{"3m", "5m", "15m", "1h"}),

		MACDFastPeriod:   getEnvIntWithDefault("MACD_FAST_PERIOD", 12),
		MACDSlowPeriod:   getEnvIntWithDefault("MACD_SLOW_PERIOD", 26),
		MACDSignalPeriod: getEnvIntWithDefault("MACD_SIGNAL_PERIOD", 9),

		ATRPeriod:        getEnvIntWithDefault("ATR_PERIOD", 14),
		ATRLowQuantile:   getEnvFloatWithDefault("ATR_LOW_QUANTILE", 0.2),
		ATRHighQuantile:  getEnvFloatWithDefault("ATR_HIGH_QUANTILE", 0.8),
		PercentileWindow: getEnvIntWithDefault("PERCENTILE_WINDOW", 200),

		HistDeltaThreshold: getEnvFloatWithDefault("HIST_DELTA_THRESHOLD", 0),

		ShadowRatio:        getEnvFloatWithDefault("SHADOW_RATIO", 2.0),
		SpikeATRMultiplier: getEnvFloatWithDefault("SPIKE_ATR_MULTIPLIER", 2.0),
		VolumeMultiplier:   getEnvFloatWithDefault("VOLUME_MULTIPLIER", 2.0),
		VolumeLookback:     getEnvIntWithDefault("VOLUME_LOOKBACK", 20),

		Weights: ScoreWeights{
			Momentum:   getEnvFloatWithDefault("WEIGHT_MOMENTUM", 0.30),
			Volatility: getEnvFloatWithDefault("WEIGHT_VOLATILITY", 0.30),
			RangePos:   getEnvFloatWithDefault("WEIGHT_RANGE_POSITION", 0.20),
			Volume:     getEnvFloatWithDefault("WEIGHT_VOLUME", 0.20),
		},

		CooldownMinutes:  getEnvIntWithDefault("COOLDOWN_MINUTES", 120),
		MaxValidMinutes:  getEnvIntWithDefault("MAX_VALID_MINUTES", 240),
		HistoryLimit:     getEnvIntWithDefault("HISTORY_LIMIT", 300),
		KeyLevelLookback: getEnvIntWithDefault("KEY_LEVEL_LOOKBACK", 20),
		PollIntervalSec:  getEnvIntWithDefault("POLL_INTERVAL", 300),

		ConfluenceATRFilter: getEnvBoolWithDefault("CONFLUENCE_ATR_FILTER", false),
		ConfluenceEnabled:   getEnvBoolWithDefault("CONFLUENCE_ENABLED", true),
		SpikeEnabled:        getEnvBoolWithDefault("SPIKE_ENABLED", true),

		WecomWebhookURL: os.Getenv("WECOM_WEBHOOK_URL"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		LLMEnabled:      getEnvBoolWithDefault("LLM_ENABLED", false),
		LLMModel:        getEnvWithDefault("LLM_MODEL", "gpt-4o-mini"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		StateFile:   getEnvWithDefault("STATE_FILE", ".macd_vol_state.json"),

		RequestTimeout: getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants once, at construction.
// Invalid values are never coerced.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: SYMBOLS must not be empty")
	}
	for _, tf := range append(append([]string{}, c.Timeframes...), c.ConfluenceTimeframes...) {
		if !models.ValidTimeframe(tf) {
			return fmt.Errorf("config: unknown timeframe %q", tf)
		}
	}
	if c.MACDFastPeriod <= 0 || c.MACDSlowPeriod <= 0 || c.MACDSignalPeriod <= 0 {
		return fmt.Errorf("config: MACD periods must be positive")
	}
	if c.MACDFastPeriod >= c.MACDSlowPeriod {
		return fmt.Errorf("config: MACD fast period %d must be below slow period %d",
			c.MACDFastPeriod, c.MACDSlowPeriod)
	}
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("config: ATR_PERIOD must be positive")
	}
	if c.ATRLowQuantile >= c.ATRHighQuantile {
		return fmt.Errorf("config: ATR quantile band invalid: low %.2f >= high %.2f",
			c.ATRLowQuantile, c.ATRHighQuantile)
	}
	if c.ATRLowQuantile < 0 || c.ATRHighQuantile > 1 {
		return fmt.Errorf("config: ATR quantiles must lie in [0,1]")
	}
	if c.PercentileWindow <= 0 {
		return fmt.Errorf("config: PERCENTILE_WINDOW must be positive")
	}
	if c.ShadowRatio <= 0 || c.SpikeATRMultiplier <= 0 || c.VolumeMultiplier <= 0 {
		return fmt.Errorf("config: spike thresholds must be positive")
	}
	if c.VolumeLookback <= 0 || c.KeyLevelLookback <= 0 {
		return fmt.Errorf("config: lookback windows must be positive")
	}
	sum := c.Weights.Momentum + c.Weights.Volatility + c.Weights.RangePos + c.Weights.Volume
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("config: score weights must sum to 1.0, got %.4f", sum)
	}
	if c.Weights.Momentum < 0 || c.Weights.Volatility < 0 || c.Weights.RangePos < 0 || c.Weights.Volume < 0 {
		return fmt.Errorf("config: score weights must be non-negative")
	}
	if c.CooldownMinutes <= 0 {
		return fmt.Errorf("config: COOLDOWN_MINUTES must be positive")
	}
	if c.MaxValidMinutes <= 0 {
		return fmt.Errorf("config: MAX_VALID_MINUTES must be positive")
	}
	// The percentile window sits on top of the ATR warmup, plus one bar
	// for the still-forming candle the engine drops.
	minHistory := c.MACDSlowPeriod + c.MACDSignalPeriod
	if warmup := c.ATRPeriod + c.PercentileWindow; warmup > minHistory {
		minHistory = warmup
	}
	if c.HistoryLimit <= minHistory {
		return fmt.Errorf("config: HISTORY_LIMIT %d must exceed the longest warmup %d",
			c.HistoryLimit, minHistory)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvListWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
