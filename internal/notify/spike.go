package notify

import (
	"fmt"
	"strings"
	"time"

	"macd-vol-bot/internal/strategy"
	"macd-vol-bot/models"
)

// FormatSpikeMessage renders an exhaustion-wick alert for the candle that
// tripped all three spike thresholds.
func FormatSpikeMessage(instrument, timeframe string, sc *strategy.SpikeCandidate) string {
	emoji := "🟢"
	label := "long spike (lower wick rejection)"
	if sc.Direction == models.DirectionShort {
		emoji = "🔴"
		label = "short spike (upper wick rejection)"
	}

	openTime := time.UnixMilli(sc.Candle.OpenTime).UTC()
	closeTime := openTime.Add(models.TimeframeDuration(timeframe))

	var b strings.Builder
	fmt.Fprintf(&b, "⚡ [Spike] %s %s — %s %s\n", instrument, timeframe, emoji, label)
	fmt.Fprintf(&b, "Candle: %s – %s\n", openTime.Format("2006-01-02 15:04:05"), closeTime.Format("15:04:05"))
	fmt.Fprintf(&b, "Close: %.4f  High: %.4f  Low: %.4f\n\n", sc.Candle.Close, sc.Candle.High, sc.Candle.Low)

	b.WriteString("Triggers:\n")
	for i, reason := range sc.Reasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, reason)
	}

	b.WriteString("\n⚠️ Disclaimer: for study and reference only, not investment advice")
	return b.String()
}
