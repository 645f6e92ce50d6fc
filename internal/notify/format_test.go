package notify

import (
	"strings"
	"testing"
	"time"

	"macd-vol-bot/internal/strategy"
	"macd-vol-bot/models"
)

func sampleSignal() models.Signal {
	return models.Signal{
		Instrument:     "BTCUSDT",
		Timeframe:      "15m",
		Direction:      models.DirectionShort,
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:      time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC),
		ReferencePrice: 64250.5,
		Confidence:     0.72,
		RiskTier:       models.RiskMid,
		Suggestion:     models.SuggestShort,
		Reasons: []string{
			"MACD histogram falling for 3 consecutive bars",
			"histogram below zero, bearish momentum building",
		},
		KeyLevels: models.KeyLevels{
			Supports:     []float64{63000, 63500},
			Resistances:  []float64{65000},
			Invalidation: 65000,
		},
		Snapshot: models.IndicatorFrame{
			Hist: -12.5, DIF: -30.2, DEA: -17.7,
			ATR: 420.3, ATRPct: 0.65, ATRPercentile: 0.55,
		},
	}
}

func TestFormatSignalMessage(t *testing.T) {
	msg := FormatSignalMessage(sampleSignal(), "")

	for _, want := range []string{
		"BTCUSDT 15m",
		"SHORT signal",
		"Price: 64250.5000",
		"Confidence: 72%",
		"Risk tier: MID",
		"Suggestion: SHORT",
		"1. MACD histogram falling for 3 consecutive bars",
		"Support: 63000.0000, 63500.0000",
		"Resistance: 65000.0000",
		"Invalidation: 65000.0000",
		"MACD hist: -12.5000",
		"ATR percentile: 0.55",
		"Disclaimer",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "AI Analysis") {
		t.Error("empty advisory must not render an analysis section")
	}
}

func TestFormatSignalMessageWithAdvisory(t *testing.T) {
	msg := FormatSignalMessage(sampleSignal(), "Momentum favors continuation lower.")
	if !strings.Contains(msg, "[AI Analysis]") || !strings.Contains(msg, "continuation lower") {
		t.Errorf("advisory section missing:\n%s", msg)
	}
}

func TestFormatLevelMessage(t *testing.T) {
	sig := sampleSignal()

	confirm := FormatLevelMessage(sig, models.LevelEvent{
		Type: "support_break", Level: 63000,
		Message: "price broke below key support 63000.0000",
	})
	if !strings.Contains(confirm, "Key level reached") || !strings.Contains(confirm, "further confirmed") {
		t.Errorf("confirmation framing missing:\n%s", confirm)
	}

	invalid := FormatLevelMessage(sig, models.LevelEvent{
		Type: "invalidation", Level: 65000,
		Message: "price crossed 65000.0000, SHORT thesis void",
	})
	if !strings.Contains(invalid, "Signal invalidated") || !strings.Contains(invalid, "no longer holds") {
		t.Errorf("invalidation framing missing:\n%s", invalid)
	}
}

func TestFormatSpikeMessage(t *testing.T) {
	sc := &strategy.SpikeCandidate{
		Direction: models.DirectionLong,
		Candle: models.Candle{
			OpenTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
			Open:     100, High: 100.6, Low: 95, Close: 100.5, Volume: 3000,
		},
		Reasons: []string{
			"dominant lower shadow 10.0x the body (threshold 2.0x)",
			"amplitude 5.6000 is 2.5x ATR (threshold 2.0x)",
			"volume 2.7x the 20-bar average (threshold 2.0x)",
		},
	}

	msg := FormatSpikeMessage("BTCUSDT", "15m", sc)
	for _, want := range []string{
		"[Spike] BTCUSDT 15m",
		"lower wick rejection",
		"2025-06-01 12:00:00 – 12:15:00",
		"1. dominant lower shadow",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("spike message missing %q:\n%s", want, msg)
		}
	}
}
