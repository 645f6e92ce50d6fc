package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"macd-vol-bot/config"
	"macd-vol-bot/internal/dedup"
	"macd-vol-bot/internal/strategy"
	"macd-vol-bot/models"
)

// fakeSource serves canned candle series keyed by instrument_timeframe.
type fakeSource struct {
	mu     sync.Mutex
	series map[string][]models.Candle
	errs   map[string]error
	calls  int
}

func (f *fakeSource) FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := instrument + "_" + timeframe
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if s, ok := f.series[key]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no data for %s", key)
}

// recordingNotifier captures every delivery.
type recordingNotifier struct {
	mu      sync.Mutex
	signals []models.Signal
	texts   []string
}

func (r *recordingNotifier) SendSignal(ctx context.Context, sig models.Signal, advisory string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
	return nil
}

func (r *recordingNotifier) SendText(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func engineConfig() *config.Config {
	return &config.Config{
		Symbols:              []string{"BTCUSDT"},
		Timeframes:           []string{"15m"},
		ConfluenceTimeframes: nil,
		MACDFastPeriod:       12,
		MACDSlowPeriod:       26,
		MACDSignalPeriod:     9,
		ATRPeriod:            14,
		ATRLowQuantile:       0.2,
		ATRHighQuantile:      0.8,
		PercentileWindow:     50,
		ShadowRatio:          2.0,
		SpikeATRMultiplier:   2.0,
		VolumeMultiplier:     2.0,
		VolumeLookback:       20,
		KeyLevelLookback:     20,
		Weights: config.ScoreWeights{
			Momentum: 0.30, Volatility: 0.30, RangePos: 0.20, Volume: 0.20,
		},
		CooldownMinutes: 120,
		MaxValidMinutes: 240,
		HistoryLimit:    300,
		PollIntervalSec: 300,
	}
}

// trendingCandles produces a long quiet stretch followed by a sustained
// sell-off, enough history for every indicator window.
func trendingCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	price := 200.0
	for i := range candles {
		drift := 0.0
		if i > n-30 {
			drift = -1.5 // late sell-off drives the histogram down
		} else if i%7 < 3 {
			drift = 0.4
		} else {
			drift = -0.3
		}
		price += drift
		candles[i] = models.Candle{
			OpenTime: int64(i) * 900_000,
			Open:     price - drift,
			High:     price + 1.2,
			Low:      price - 1.2,
			Close:    price,
			Volume:   1000 + float64(i%10)*40,
		}
	}
	return candles
}

func TestRunCycleSkipsFailingPair(t *testing.T) {
	cfg := engineConfig()
	cfg.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	source := &fakeSource{
		series: map[string][]models.Candle{
			"ETHUSDT_15m": trendingCandles(300),
		},
		errs: map[string]error{
			"BTCUSDT_15m": fmt.Errorf("connection reset"),
		},
	}
	notifier := &recordingNotifier{}
	eng := New(cfg, source, notifier, nil, dedup.New(2*time.Hour, nil))

	eng.RunCycle(context.Background())

	// The failing pair is skipped, the healthy one still evaluated.
	if source.calls < 2 {
		t.Fatalf("both pairs must be attempted, got %d calls", source.calls)
	}
}

func TestRunCycleInsufficientHistoryIsNotFatal(t *testing.T) {
	cfg := engineConfig()
	source := &fakeSource{
		series: map[string][]models.Candle{
			"BTCUSDT_15m": trendingCandles(20),
		},
	}
	notifier := &recordingNotifier{}
	eng := New(cfg, source, notifier, nil, dedup.New(2*time.Hour, nil))

	eng.RunCycle(context.Background())
	if len(notifier.signals) != 0 {
		t.Fatalf("short history must not emit, got %d signals", len(notifier.signals))
	}
}

func TestDispatchDedup(t *testing.T) {
	cfg := engineConfig()
	notifier := &recordingNotifier{}
	eng := New(cfg, &fakeSource{}, notifier, nil, dedup.New(2*time.Hour, nil))

	sig := models.Signal{
		Instrument:     "BTCUSDT",
		Timeframe:      "15m",
		Direction:      models.DirectionShort,
		Timestamp:      time.Now().UTC(),
		ReferencePrice: 100,
		Confidence:     0.7,
		RiskTier:       models.RiskMid,
		Suggestion:     models.SuggestShort,
		Reasons:        []string{"test"},
		KeyLevels:      models.KeyLevels{Supports: []float64{95}, Invalidation: 105},
	}

	eng.dispatch(context.Background(), sig)
	eng.dispatch(context.Background(), sig)

	if len(notifier.signals) != 1 {
		t.Fatalf("duplicate within the cooldown must be suppressed, delivered %d", len(notifier.signals))
	}

	// The opposite direction is an independent key.
	long := sig
	long.Direction = models.DirectionLong
	eng.dispatch(context.Background(), long)
	if len(notifier.signals) != 2 {
		t.Fatalf("opposite direction must emit, delivered %d", len(notifier.signals))
	}
}

func TestDispatchLevelBreakDuringCooldown(t *testing.T) {
	cfg := engineConfig()
	notifier := &recordingNotifier{}
	eng := New(cfg, &fakeSource{}, notifier, nil, dedup.New(2*time.Hour, nil))

	sig := models.Signal{
		Instrument:     "BTCUSDT",
		Timeframe:      "15m",
		Direction:      models.DirectionShort,
		Timestamp:      time.Now().UTC(),
		ReferencePrice: 100,
		RiskTier:       models.RiskMid,
		KeyLevels:      models.KeyLevels{Supports: []float64{95}, Invalidation: 110},
	}
	eng.dispatch(context.Background(), sig)

	// Duplicate at a price below the recorded support: suppressed as a
	// signal, but the support break goes out as a text notice.
	dup := sig
	dup.ReferencePrice = 94
	eng.dispatch(context.Background(), dup)

	if len(notifier.signals) != 1 {
		t.Fatalf("expected one delivered signal, got %d", len(notifier.signals))
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "support") {
		t.Fatalf("expected a support break notice, got %v", notifier.texts)
	}
}

func TestBuildSignalExpiry(t *testing.T) {
	cfg := engineConfig()
	eng := New(cfg, &fakeSource{}, &recordingNotifier{}, nil, dedup.New(2*time.Hour, nil))

	frames := []models.IndicatorFrame{
		{Hist: -1, HistDelta: -0.5, ATRPercentile: 0.5, Close: 100},
		{Hist: -1.5, HistDelta: -0.5, ATRPercentile: 0.5, Close: 99},
		{Hist: -2, HistDelta: -0.5, ATRPercentile: 0.5, Close: 98},
	}
	candles := trendingCandles(60)

	c := strategy.EvaluateMACDVol(frames, cfg)
	if c == nil {
		t.Fatal("expected a SHORT candidate from the falling histogram")
	}
	sig := eng.buildSignal("BTCUSDT", "15m", c, frames, candles)

	if got := sig.ExpiresAt.Sub(sig.Timestamp); got != 240*time.Minute {
		t.Errorf("expiry horizon got %v, want 240m", got)
	}
	if sig.ReferencePrice != 98 {
		t.Errorf("reference price must come from the latest frame, got %f", sig.ReferencePrice)
	}
	if sig.Suggestion == "" || sig.RiskTier == "" {
		t.Error("signal must carry a suggestion and risk tier")
	}
}
