package models

import (
	"time"
)

// Direction of a trading signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// RiskTier classifies a signal by the ATR percentile at emission time.
type RiskTier string

const (
	RiskLow  RiskTier = "LOW"
	RiskMid  RiskTier = "MID"
	RiskHigh RiskTier = "HIGH"
)

// Suggestion is the acted-upon recommendation attached to a signal.
// A signal can be directionally valid but still suggest WATCH when the
// confidence is low or the risk tier is HIGH.
type Suggestion string

const (
	SuggestLong  Suggestion = "LONG"
	SuggestShort Suggestion = "SHORT"
	SuggestWatch Suggestion = "WATCH"
)

// Candle represents a single OHLCV candle. OpenTime is the candle open
// timestamp in epoch milliseconds, unique and increasing within a series.
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// IndicatorFrame is one fully-defined row of derived indicators, aligned
// with the candle that produced it. Frames exist only from the first bar
// where every lookback (slow EMA + signal EMA, ATR period, percentile
// window) is satisfied.
type IndicatorFrame struct {
	OpenTime      int64   `json:"open_time"`
	Close         float64 `json:"close"`
	Volume        float64 `json:"volume"`
	DIF           float64 `json:"dif"`
	DEA           float64 `json:"dea"`
	Hist          float64 `json:"hist"`
	HistDelta     float64 `json:"hist_delta"`
	ATR           float64 `json:"atr"`
	ATRPct        float64 `json:"atr_pct"`
	ATRPercentile float64 `json:"atr_percentile"`
}

// KeyLevels holds the price levels a signal is framed against.
type KeyLevels struct {
	Supports     []float64 `json:"supports"`
	Resistances  []float64 `json:"resistances"`
	Invalidation float64   `json:"invalidation"`
}

// Signal is the immutable output unit handed to notifiers and the LLM
// analyzer. It is a value object; downstream consumers may hold copies
// freely.
type Signal struct {
	Instrument     string         `json:"instrument"`
	Timeframe      string         `json:"timeframe"`
	Direction      Direction      `json:"direction"`
	Timestamp      time.Time      `json:"timestamp"`
	ExpiresAt      time.Time      `json:"expires_at"`
	ReferencePrice float64        `json:"reference_price"`
	Confidence     float64        `json:"confidence"`
	RiskTier       RiskTier       `json:"risk_tier"`
	Suggestion     Suggestion     `json:"suggestion"`
	Reasons        []string       `json:"reasons"`
	KeyLevels      KeyLevels      `json:"key_levels"`
	Snapshot       IndicatorFrame `json:"indicator_snapshot"`
}

// DedupKey identifies the cooldown bucket for a signal.
type DedupKey struct {
	Instrument string
	Timeframe  string
	Direction  Direction
}

// DedupEntry records the last emission for a key.
type DedupEntry struct {
	LastEmittedAt time.Time `json:"last_emitted_at"`
}

// LevelEvent reports a first-time price cross of a recorded key level
// while the owning signal key is inside its cooldown window.
type LevelEvent struct {
	Type    string `json:"type"` // support_break, resistance_break, invalidation
	Level   float64
	Message string
}
