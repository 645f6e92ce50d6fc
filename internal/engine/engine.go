package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/dedup"
	"macd-vol-bot/internal/indicators"
	"macd-vol-bot/internal/notify"
	"macd-vol-bot/internal/strategy"
	"macd-vol-bot/models"
)

// Engine runs the monitoring loop: fetch candles, derive indicators,
// evaluate the strategies, score, dedup, and hand qualifying signals to
// the notifier and the optional LLM analyzer.
type Engine struct {
	cfg      *config.Config
	source   models.CandleSource
	notifier models.Notifier
	analyzer models.Analyzer // nil when LLM analysis is disabled
	ledger   *dedup.Ledger
	logger   zerolog.Logger

	mu          sync.Mutex
	lastSignals map[models.DedupKey]models.Signal
}

// New builds an engine. The analyzer may be nil.
func New(cfg *config.Config, source models.CandleSource, notifier models.Notifier,
	analyzer models.Analyzer, ledger *dedup.Ledger) *Engine {
	return &Engine{
		cfg:         cfg,
		source:      source,
		notifier:    notifier,
		analyzer:    analyzer,
		ledger:      ledger,
		logger:      log.With().Str("component", "engine").Logger(),
		lastSignals: make(map[models.DedupKey]models.Signal),
	}
}

// Run executes cycles at the configured poll interval until the context
// is cancelled. The first cycle starts immediately.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.cfg.PollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.RunCycle(ctx)
			e.ledger.CleanupExpired(7 * 24 * time.Hour)
		}
	}
}

// RunCycle performs one full sweep. A failing pair never aborts the
// sweep; insufficient history and transient fetch errors are logged and
// skipped.
func (e *Engine) RunCycle(ctx context.Context) {
	started := time.Now()

	for _, symbol := range e.cfg.Symbols {
		for _, timeframe := range e.cfg.Timeframes {
			e.evaluatePair(ctx, symbol, timeframe)
		}
		if e.cfg.ConfluenceEnabled {
			e.evaluateConfluence(ctx, symbol)
		}
		if e.cfg.SpikeEnabled {
			for _, timeframe := range e.cfg.Timeframes {
				e.evaluateSpike(ctx, symbol, timeframe)
			}
		}
	}

	e.logger.Info().Dur("elapsed", time.Since(started)).Msg("Cycle complete")
}

// evaluatePair runs the single-timeframe MACD + volatility strategy.
func (e *Engine) evaluatePair(ctx context.Context, symbol, timeframe string) {
	candles, err := e.source.FetchCandles(ctx, symbol, timeframe, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Warn().Err(err).Str("instrument", symbol).Str("timeframe", timeframe).
			Msg("Fetch failed, skipping pair this cycle")
		return
	}
	if len(candles) < 2 {
		return
	}

	// The last bar is still forming; evaluate closed bars only.
	closed := candles[:len(candles)-1]
	frames, err := indicators.BuildFrames(closed, e.frameParams())
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			e.logger.Debug().Str("instrument", symbol).Str("timeframe", timeframe).
				Msg("Not enough history yet")
			return
		}
		e.logger.Warn().Err(err).Str("instrument", symbol).Str("timeframe", timeframe).
			Msg("Indicator computation failed")
		return
	}

	cand := strategy.EvaluateMACDVol(frames, e.cfg)
	if cand == nil {
		return
	}

	sig := e.buildSignal(symbol, timeframe, cand, frames, closed)
	e.dispatch(ctx, sig)
}

// evaluateConfluence runs the strict multi-timeframe agreement strategy
// for one symbol. Any timeframe that cannot be fetched kills the
// evaluation for this cycle.
func (e *Engine) evaluateConfluence(ctx context.Context, symbol string) {
	if len(e.cfg.ConfluenceTimeframes) == 0 {
		return
	}

	series := make([]strategy.TimeframeSeries, 0, len(e.cfg.ConfluenceTimeframes))
	var lastCandles []models.Candle
	for _, timeframe := range e.cfg.ConfluenceTimeframes {
		candles, err := e.source.FetchCandles(ctx, symbol, timeframe, e.cfg.HistoryLimit)
		if err != nil {
			e.logger.Warn().Err(err).Str("instrument", symbol).Str("timeframe", timeframe).
				Msg("Confluence fetch failed, skipping symbol this cycle")
			return
		}
		if len(candles) < 2 {
			return
		}
		closed := candles[:len(candles)-1]
		frames, err := indicators.BuildFrames(closed, e.frameParams())
		if err != nil {
			if !errors.Is(err, indicators.ErrInsufficientData) {
				e.logger.Warn().Err(err).Str("instrument", symbol).Str("timeframe", timeframe).
					Msg("Confluence indicator computation failed")
			}
			return
		}
		series = append(series, strategy.TimeframeSeries{Timeframe: timeframe, Frames: frames})
		lastCandles = closed
	}

	cand := strategy.EvaluateConfluence(series, e.cfg)
	if cand == nil {
		return
	}

	label := strings.Join(e.cfg.ConfluenceTimeframes, "+")
	last := series[len(series)-1]
	sig := e.buildSignal(symbol, label, cand, last.Frames, lastCandles)
	e.dispatch(ctx, sig)
}

// evaluateSpike runs the exhaustion-wick detector on the last closed
// candle. Spike alerts dedup per candle open time, not per cooldown.
func (e *Engine) evaluateSpike(ctx context.Context, symbol, timeframe string) {
	candles, err := e.source.FetchCandles(ctx, symbol, timeframe, e.cfg.HistoryLimit)
	if err != nil {
		e.logger.Warn().Err(err).Str("instrument", symbol).Str("timeframe", timeframe).
			Msg("Spike fetch failed, skipping pair this cycle")
		return
	}

	sc := strategy.EvaluateSpike(candles, e.cfg)
	if sc == nil {
		return
	}
	if !e.ledger.MarkCandle(symbol, timeframe, sc.Candle.OpenTime) {
		return
	}

	e.logger.Info().
		Str("instrument", symbol).
		Str("timeframe", timeframe).
		Str("direction", string(sc.Direction)).
		Float64("shadow_ratio", sc.Geometry.ShadowRatio).
		Float64("volume_ratio", sc.VolumeRatio).
		Msg("Spike alert")

	if err := e.notifier.SendText(ctx, notify.FormatSpikeMessage(symbol, timeframe, sc)); err != nil {
		e.logger.Error().Err(err).Msg("Spike alert delivery failed")
	}
}

// buildSignal scores a candidate and assembles the immutable signal.
func (e *Engine) buildSignal(symbol, timeframe string, cand *strategy.Candidate,
	frames []models.IndicatorFrame, candles []models.Candle) models.Signal {

	confidence := strategy.Confidence(cand, frames, candles, e.cfg)
	risk := strategy.RiskTierFor(cand.Frame.ATRPercentile)
	now := time.Now().UTC()

	return models.Signal{
		Instrument:     symbol,
		Timeframe:      timeframe,
		Direction:      cand.Direction,
		Timestamp:      now,
		ExpiresAt:      now.Add(time.Duration(e.cfg.MaxValidMinutes) * time.Minute),
		ReferencePrice: cand.Frame.Close,
		Confidence:     confidence,
		RiskTier:       risk,
		Suggestion:     strategy.SuggestionFor(confidence, risk, cand.Direction),
		Reasons:        cand.Reasons,
		KeyLevels:      strategy.ComputeKeyLevels(candles, cand.Direction, e.cfg.KeyLevelLookback),
		Snapshot:       cand.Frame,
	}
}

// dispatch decides emission and delivers. The emission decision is made
// here, at dedup time; a failing notifier or analyzer never rolls the
// cooldown entry back.
func (e *Engine) dispatch(ctx context.Context, sig models.Signal) {
	key := models.DedupKey{Instrument: sig.Instrument, Timeframe: sig.Timeframe, Direction: sig.Direction}

	if !e.ledger.ShouldEmit(key, time.Now()) {
		e.checkLevelBreak(ctx, key, sig.ReferencePrice)
		return
	}

	e.mu.Lock()
	e.lastSignals[key] = sig
	e.mu.Unlock()

	e.logger.Info().
		Str("instrument", sig.Instrument).
		Str("timeframe", sig.Timeframe).
		Str("direction", string(sig.Direction)).
		Float64("confidence", sig.Confidence).
		Str("risk", string(sig.RiskTier)).
		Str("suggestion", string(sig.Suggestion)).
		Msg("Signal emitted")

	advisory := ""
	if e.analyzer != nil {
		result, err := e.analyzer.AnalyzeSignal(ctx, sig)
		if err == nil {
			advisory = result
		}
	}

	if err := e.notifier.SendSignal(ctx, sig, advisory); err != nil {
		e.logger.Error().Err(err).
			Str("instrument", sig.Instrument).
			Str("timeframe", sig.Timeframe).
			Msg("Signal delivery failed")
	}
}

// checkLevelBreak follows up a suppressed duplicate: while the key is in
// cooldown, a first-time cross of one of the emitted signal's key levels
// still warrants a confirmation or invalidation notice.
func (e *Engine) checkLevelBreak(ctx context.Context, key models.DedupKey, price float64) {
	e.mu.Lock()
	sig, ok := e.lastSignals[key]
	e.mu.Unlock()
	if !ok || math.IsNaN(price) {
		return
	}

	event := e.ledger.CheckLevelBreak(key, price, sig.KeyLevels)
	if event == nil {
		return
	}

	e.logger.Info().
		Str("instrument", key.Instrument).
		Str("type", event.Type).
		Float64("level", event.Level).
		Msg("Key level event")

	sig.ReferencePrice = price
	if err := e.notifier.SendText(ctx, notify.FormatLevelMessage(sig, *event)); err != nil {
		e.logger.Error().Err(err).Msg("Level event delivery failed")
	}
}

func (e *Engine) frameParams() indicators.Params {
	return indicators.Params{
		MACDFast:         e.cfg.MACDFastPeriod,
		MACDSlow:         e.cfg.MACDSlowPeriod,
		MACDSignal:       e.cfg.MACDSignalPeriod,
		ATRPeriod:        e.cfg.ATRPeriod,
		PercentileWindow: e.cfg.PercentileWindow,
	}
}
