package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "macd-vol-bot/internal/platform/http"
	"macd-vol-bot/models"
)

// WecomNotifier posts signal cards to a WeCom group webhook. Signals go
// out as markdown messages; startup and key-level notices as plain text.
type WecomNotifier struct {
	webhookURL string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// NewWecomNotifier creates a WeCom webhook notifier
func NewWecomNotifier(webhookURL string) *WecomNotifier {
	return &WecomNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         10 * time.Second,
			RequestsPerSec:  2,
			MaxRetryTimeout: 20 * time.Second,
		}),
		logger: log.With().Str("component", "wecom_notifier").Logger(),
	}
}

// SendSignal formats the signal as a markdown card and delivers it.
func (n *WecomNotifier) SendSignal(ctx context.Context, sig models.Signal, advisory string) error {
	payload := map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"content": FormatSignalMessage(sig, advisory),
		},
	}
	if err := n.post(ctx, payload); err != nil {
		return err
	}
	n.logger.Info().
		Str("instrument", sig.Instrument).
		Str("timeframe", sig.Timeframe).
		Str("direction", string(sig.Direction)).
		Float64("price", sig.ReferencePrice).
		Msg("Signal delivered to WeCom")
	return nil
}

// SendText delivers a plain-text notice.
func (n *WecomNotifier) SendText(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"msgtype": "text",
		"text": map[string]string{
			"content": text,
		},
	}
	return n.post(ctx, payload)
}

func (n *WecomNotifier) post(ctx context.Context, payload interface{}) error {
	if n.webhookURL == "" {
		return fmt.Errorf("wecom webhook URL not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.DoRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var result struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wecom API error %d: %s", result.ErrCode, result.ErrMsg)
	}
	return nil
}

// FormatSignalMessage renders the full signal card: header, scores,
// reasons, key levels, indicator snapshot, and the optional advisory.
func FormatSignalMessage(sig models.Signal, advisory string) string {
	emoji := "🟢"
	label := "LONG signal"
	if sig.Direction == models.DirectionShort {
		emoji = "🔴"
		label = "SHORT signal"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Signal] %s %s — %s %s\n", sig.Instrument, sig.Timeframe, emoji, label)
	fmt.Fprintf(&b, "Price: %.4f\n", sig.ReferencePrice)
	fmt.Fprintf(&b, "Time: %s\n\n", sig.Timestamp.UTC().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "Confidence: %.0f%%\n", sig.Confidence*100)
	fmt.Fprintf(&b, "Risk tier: %s\n", sig.RiskTier)
	fmt.Fprintf(&b, "Suggestion: %s\n\n", sig.Suggestion)

	b.WriteString("Reasons:\n")
	for i, reason := range sig.Reasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, reason)
	}

	b.WriteString("\nKey levels:\n")
	if len(sig.KeyLevels.Supports) > 0 {
		b.WriteString("- Support: " + joinLevels(sig.KeyLevels.Supports) + "\n")
	}
	if len(sig.KeyLevels.Resistances) > 0 {
		b.WriteString("- Resistance: " + joinLevels(sig.KeyLevels.Resistances) + "\n")
	}
	if sig.KeyLevels.Invalidation > 0 {
		fmt.Fprintf(&b, "- Invalidation: %.4f\n", sig.KeyLevels.Invalidation)
	}

	b.WriteString("\nIndicators:\n")
	fmt.Fprintf(&b, "- MACD hist: %.4f\n", sig.Snapshot.Hist)
	fmt.Fprintf(&b, "- DIF: %.4f\n", sig.Snapshot.DIF)
	fmt.Fprintf(&b, "- DEA: %.4f\n", sig.Snapshot.DEA)
	fmt.Fprintf(&b, "- ATR: %.4f (%.2f%%)\n", sig.Snapshot.ATR, sig.Snapshot.ATRPct)
	fmt.Fprintf(&b, "- ATR percentile: %.2f\n", sig.Snapshot.ATRPercentile)

	if advisory != "" {
		b.WriteString("\n[AI Analysis]\n")
		b.WriteString(advisory)
		b.WriteString("\n")
	}

	b.WriteString("\n⚠️ Disclaimer: for study and reference only, not investment advice")
	return b.String()
}

// FormatLevelMessage renders a key-level confirmation or invalidation
// notice for a signal that is still inside its cooldown window.
func FormatLevelMessage(sig models.Signal, event models.LevelEvent) string {
	emoji := "🟢"
	if sig.Direction == models.DirectionShort {
		emoji = "🔴"
	}

	title := "🚨 Key level reached"
	action := fmt.Sprintf("earlier %s view further confirmed", sig.Direction)
	if event.Type == "invalidation" {
		title = "⚠️ Signal invalidated"
		action = fmt.Sprintf("earlier %s view no longer holds", sig.Direction)
	}

	var b strings.Builder
	b.WriteString(title + "\n")
	fmt.Fprintf(&b, "%s %s — %s %s\n\n", sig.Instrument, sig.Timeframe, emoji, sig.Direction)
	b.WriteString(event.Message + "\n")
	b.WriteString(action + "\n\n")
	fmt.Fprintf(&b, "Current price: %.4f\n", sig.ReferencePrice)
	fmt.Fprintf(&b, "Risk tier: %s\n\n", sig.RiskTier)
	b.WriteString("⚠️ Disclaimer: for study and reference only, not investment advice")
	return b.String()
}

func joinLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.4f", l)
	}
	return strings.Join(parts, ", ")
}
