package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/dedup"
	"macd-vol-bot/internal/engine"
	"macd-vol-bot/internal/llm"
	"macd-vol-bot/internal/market"
	"macd-vol-bot/internal/notify"
	"macd-vol-bot/models"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().Msg("Starting MACD volatility signal bot")
	printConfig(cfg)

	// 3. Market data source
	source := market.NewBinanceClient(market.ClientOptions{
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: 5,
	})

	// 4. Notification channels
	notifier, err := buildNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up notifiers")
	}

	// 5. Optional LLM analyzer
	var analyzer models.Analyzer
	if cfg.LLMEnabled && cfg.OpenAIAPIKey != "" {
		analyzer = llm.NewAnalyzer(cfg.OpenAIAPIKey, cfg.LLMModel)
		log.Info().Str("model", cfg.LLMModel).Msg("LLM analysis enabled")
	}

	// 6. Dedup ledger with persistence
	ledger := dedup.New(time.Duration(cfg.CooldownMinutes)*time.Minute, buildStore(cfg))

	// 7. Startup notice and poll loop
	eng := engine.New(cfg, source, notifier, analyzer, ledger)
	if err := notifier.SendText(ctx, startupMessage(cfg)); err != nil {
		log.Warn().Err(err).Msg("Startup notification failed")
	}

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("Engine stopped unexpectedly")
	}
	log.Info().Msg("Shutdown complete")
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config) {
	log.Info().
		Strs("Symbols", cfg.Symbols).
		Strs("Timeframes", cfg.Timeframes).
		Strs("ConfluenceTimeframes", cfg.ConfluenceTimeframes).
		Int("MACDFastPeriod", cfg.MACDFastPeriod).
		Int("MACDSlowPeriod", cfg.MACDSlowPeriod).
		Int("MACDSignalPeriod", cfg.MACDSignalPeriod).
		Int("ATRPeriod", cfg.ATRPeriod).
		Float64("ATRLowQuantile", cfg.ATRLowQuantile).
		Float64("ATRHighQuantile", cfg.ATRHighQuantile).
		Int("PercentileWindow", cfg.PercentileWindow).
		Int("CooldownMinutes", cfg.CooldownMinutes).
		Int("PollIntervalSec", cfg.PollIntervalSec).
		Bool("ConfluenceEnabled", cfg.ConfluenceEnabled).
		Bool("SpikeEnabled", cfg.SpikeEnabled).
		Bool("LLMEnabled", cfg.LLMEnabled).
		Msg("Configuration loaded")
}

// buildNotifier wires every configured outbound channel into a fan-out.
func buildNotifier(cfg *config.Config) (models.Notifier, error) {
	var channels []models.Notifier

	if cfg.WecomWebhookURL != "" {
		channels = append(channels, notify.NewWecomNotifier(cfg.WecomWebhookURL))
		log.Info().Msg("WeCom notifications enabled")
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
		log.Info().Msg("Telegram notifications enabled")
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no notification channel configured, set WECOM_WEBHOOK_URL or TELEGRAM_BOT_TOKEN")
	}
	return notify.NewMultiNotifier(channels...), nil
}

// buildStore picks the dedup persistence backend: PostgreSQL when a DSN
// is configured, the local state file otherwise.
func buildStore(cfg *config.Config) dedup.Store {
	if cfg.PostgresDSN != "" {
		store, err := dedup.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			log.Warn().Err(err).Msg("Postgres unavailable, falling back to state file")
			return dedup.NewFileStore(cfg.StateFile)
		}
		log.Info().Msg("Dedup state persisted to PostgreSQL")
		return store
	}
	return dedup.NewFileStore(cfg.StateFile)
}

func startupMessage(cfg *config.Config) string {
	return fmt.Sprintf(
		"🚀 MACD volatility signal bot started\n\n"+
			"Instruments: %s\n"+
			"Timeframes: %s\n"+
			"Poll interval: %ds\n"+
			"Cooldown: %dmin",
		strings.Join(cfg.Symbols, ", "),
		strings.Join(cfg.Timeframes, ", "),
		cfg.PollIntervalSec,
		cfg.CooldownMinutes,
	)
}
