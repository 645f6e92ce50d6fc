package models

import "time"

// TimeframeDuration converts a timeframe label to its bar duration.
// Unknown labels fall back to 1h.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	}
	return time.Hour
}

// ValidTimeframe reports whether the label is one the engine understands.
func ValidTimeframe(timeframe string) bool {
	switch timeframe {
	case "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "1d":
		return true
	}
	return false
}
