package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"macd-vol-bot/models"
)

const systemPrompt = "You are a professional crypto quantitative trading analyst. " +
	"Your analysis must: 1) be logically rigorous without contradicting itself; " +
	"2) stay consistent with the given signal direction and suggestion; " +
	"3) assess risk objectively; 4) give concrete, actionable advice."

// Analyzer produces a short natural-language advisory for a signal. The
// advisory is strictly optional; any failure degrades to an empty result
// and the signal goes out without it.
type Analyzer struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewAnalyzer creates an OpenAI-backed signal analyzer
func NewAnalyzer(apiKey, model string) *Analyzer {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Analyzer{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: log.With().Str("component", "llm_analyzer").Logger(),
	}
}

// AnalyzeSignal asks the model for a 150-200 word advisory grounded on
// the signal's indicators, reasons, and key levels.
func (a *Analyzer) AnalyzeSignal(ctx context.Context, sig models.Signal) (string, error) {
	resp, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:     a.model,
			MaxTokens: 300,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: buildAnalysisPrompt(sig),
				},
			},
		},
	)
	if err != nil {
		a.logger.Warn().Err(err).Msg("LLM analysis failed, continuing without advisory")
		return "", err
	}
	if len(resp.Choices) == 0 {
		a.logger.Warn().Msg("LLM returned empty choices")
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildAnalysisPrompt(sig models.Signal) string {
	var b strings.Builder
	b.WriteString("# Trading signal analysis\n\n")
	fmt.Fprintf(&b, "Instrument: %s\n", sig.Instrument)
	fmt.Fprintf(&b, "Timeframe: %s\n", sig.Timeframe)
	fmt.Fprintf(&b, "Direction: %s\n", sig.Direction)
	fmt.Fprintf(&b, "Suggestion: %s\n", sig.Suggestion)
	fmt.Fprintf(&b, "Current price: %.4f\n", sig.ReferencePrice)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", sig.Confidence*100)
	fmt.Fprintf(&b, "Risk tier: %s\n\n", sig.RiskTier)

	b.WriteString("## Indicators\n")
	fmt.Fprintf(&b, "- MACD hist: %.4f\n", sig.Snapshot.Hist)
	fmt.Fprintf(&b, "- DIF: %.4f\n", sig.Snapshot.DIF)
	fmt.Fprintf(&b, "- DEA: %.4f\n", sig.Snapshot.DEA)
	fmt.Fprintf(&b, "- ATR: %.4f (%.2f%%)\n", sig.Snapshot.ATR, sig.Snapshot.ATRPct)
	fmt.Fprintf(&b, "- ATR percentile: %.2f (0=very quiet, 0.5=normal, 1=very volatile)\n\n", sig.Snapshot.ATRPercentile)

	b.WriteString("## Signal reasons\n")
	for i, reason := range sig.Reasons {
		fmt.Fprintf(&b, "%d. %s\n", i+1, reason)
	}

	b.WriteString("\n## Key levels\n")
	fmt.Fprintf(&b, "- Support: %s\n", formatLevels(sig.KeyLevels.Supports))
	fmt.Fprintf(&b, "- Resistance: %s\n", formatLevels(sig.KeyLevels.Resistances))
	fmt.Fprintf(&b, "- Invalidation: %.2f\n\n", sig.KeyLevels.Invalidation)

	b.WriteString("---\n\n")
	b.WriteString("As a professional quant analyst, provide:\n\n")
	b.WriteString("1. **Market state**: current trend and momentum character\n")
	fmt.Fprintf(&b, "2. **Signal reliability**: validity of the %s signal\n", sig.Direction)
	b.WriteString("3. **Risk notes**: main risk points to watch\n")
	b.WriteString("4. **Execution**: concrete entry, stop and target advice\n\n")
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Analysis must agree with the %s direction\n", sig.Direction)
	fmt.Fprintf(&b, "- Execution advice must agree with the %s suggestion\n", sig.Suggestion)
	b.WriteString("- Professional, objective, concise (150-200 words)\n")
	b.WriteString("- Do not contradict yourself\n")
	return b.String()
}

func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.2f", l)
	}
	return strings.Join(parts, ", ")
}
