package indicators

import (
	"math"

	"macd-vol-bot/models"
)

// bodyEpsilon guards the shadow ratio against doji candles with a zero
// body.
const bodyEpsilon = 1e-8

// Geometry is the shadow/body decomposition of a single candle.
type Geometry struct {
	Body        float64
	UpperShadow float64
	LowerShadow float64
	Amplitude   float64
	ShadowRatio float64
	// DominantLower is true when the lower shadow is the longer one,
	// which reads as a bullish (LONG) rejection wick.
	DominantLower bool
}

// ComputeGeometry decomposes a candle into body, shadows and amplitude.
// The shadow ratio compares the dominant shadow against the body.
func ComputeGeometry(c models.Candle) Geometry {
	g := Geometry{
		Body:        math.Abs(c.Close - c.Open),
		UpperShadow: c.High - math.Max(c.Open, c.Close),
		LowerShadow: math.Min(c.Open, c.Close) - c.Low,
		Amplitude:   c.High - c.Low,
	}
	dominant := g.UpperShadow
	if g.LowerShadow > g.UpperShadow {
		dominant = g.LowerShadow
		g.DominantLower = true
	}
	g.ShadowRatio = dominant / math.Max(g.Body, bodyEpsilon)
	return g
}

// SpikeDirection maps the dominant shadow to the reversal direction an
// exhaustion wick suggests: a long upper shadow is a bearish rejection, a
// long lower shadow a bullish one.
func (g Geometry) SpikeDirection() models.Direction {
	if g.DominantLower {
		return models.DirectionLong
	}
	return models.DirectionShort
}
