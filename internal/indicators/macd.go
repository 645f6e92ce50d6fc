package indicators

import (
	"errors"
	"math"

	"macd-vol-bot/models"
)

// ErrInsufficientData is returned when a candle series is shorter than the
// longest indicator lookback. It is the normal "cannot evaluate yet"
// outcome, not a failure: callers skip the pair for the cycle.
var ErrInsufficientData = errors.New("insufficient candle data")

// MACDSeries holds the per-bar MACD values for a candle series, index
// aligned with the input candles. HistDelta[0] is NaN.
type MACDSeries struct {
	DIF       []float64
	DEA       []float64
	Hist      []float64
	HistDelta []float64
}

// MACD computes DIF (fast EMA - slow EMA of close), DEA (EMA of DIF) and
// the histogram. The histogram convention is hist = dif - dea; rule logic
// only ever inspects its sign and bar-to-bar delta, so the scale is not
// load-bearing.
func MACD(candles []models.Candle, fast, slow, signal int) (*MACDSeries, error) {
	if len(candles) < slow+signal {
		return nil, ErrInsufficientData
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}

	dea := emaSeries(dif, signal)

	hist := make([]float64, len(closes))
	histDelta := make([]float64, len(closes))
	histDelta[0] = math.NaN()
	for i := range closes {
		hist[i] = dif[i] - dea[i]
		if i > 0 {
			histDelta[i] = hist[i] - hist[i-1]
		}
	}

	return &MACDSeries{DIF: dif, DEA: dea, Hist: hist, HistDelta: histDelta}, nil
}

// emaSeries computes a full exponential moving average series with
// smoothing factor 2/(period+1), seeded on the first value.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// ConsecutiveTrend returns the length of the strictly monotonic run ending
// at the last element: positive for rising, negative for falling, zero
// when the series is too short or the last step is flat. A zero step or
// NaN breaks the run.
func ConsecutiveTrend(series []float64) int {
	if len(series) < 2 {
		return 0
	}

	count := 0
	direction := 0
	for i := len(series) - 1; i > 0; i-- {
		diff := series[i] - series[i-1]
		if math.IsNaN(diff) || diff == 0 {
			break
		}
		step := 1
		if diff < 0 {
			step = -1
		}
		if direction == 0 {
			direction = step
			count = 1
		} else if step == direction {
			count++
		} else {
			break
		}
	}
	return count * direction
}
