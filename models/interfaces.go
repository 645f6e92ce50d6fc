package models

import "context"

// CandleSource fetches an ordered (oldest-first) candle series for one
// instrument and timeframe. A transient network failure is returned as an
// error; the caller skips the pair for the current cycle.
type CandleSource interface {
	FetchCandles(ctx context.Context, instrument, timeframe string, limit int) ([]Candle, error)
}

// Notifier delivers signals and plain notices to an outbound channel.
// Delivery failure never affects dedup state.
type Notifier interface {
	SendSignal(ctx context.Context, sig Signal, advisory string) error
	SendText(ctx context.Context, text string) error
}

// Analyzer produces an optional natural-language advisory for a signal.
// The signal is complete without it; errors degrade to an empty advisory.
type Analyzer interface {
	AnalyzeSignal(ctx context.Context, sig Signal) (string, error)
}
