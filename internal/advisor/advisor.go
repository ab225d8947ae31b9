package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"advisory-trading-bot/internal/types"
)

// ErrInvalidAdvisorySignal is returned for model output that is not a usable signal.
var ErrInvalidAdvisorySignal = errors.New("invalid advisory signal")

// SystemPrompt frames the model as a conservative analyst.
const SystemPrompt = "You are a cryptocurrency trading expert. Analyze market conditions with a focus on " +
	"technical analysis (70%) and news sentiment (30%). Be conservative in your analysis and " +
	"maintain high confidence thresholds."

const maxPromptHeadlines = 3

// BuildPrompt renders the short-term snapshot and the freshest headlines for the model.
func BuildPrompt(headlines []types.NewsItem, snap types.Snapshot, price float64) string {
	var b strings.Builder
	b.WriteString("Analyze the current market conditions and provide a trading recommendation. Consider:\n\n")
	b.WriteString("Technical Indicators:\n")
	fmt.Fprintf(&b, "- RSI: %.2f\n", snap.RSI)
	fmt.Fprintf(&b, "- EMA short: %.2f\n", snap.EMAShort)
	fmt.Fprintf(&b, "- EMA long: %.2f\n", snap.EMALong)
	fmt.Fprintf(&b, "- MACD: %.4f (signal %.4f, histogram %.4f)\n", snap.MACD.Line, snap.MACD.Signal, snap.MACD.Histogram)
	fmt.Fprintf(&b, "- Bollinger: lower %.2f, middle %.2f, upper %.2f\n", snap.Bollinger.Lower, snap.Bollinger.Middle, snap.Bollinger.Upper)
	fmt.Fprintf(&b, "- Volatility: %.4f\n", snap.Volatility)
	fmt.Fprintf(&b, "- Support: %.2f, Resistance: %.2f\n", snap.Support, snap.Resistance)
	fmt.Fprintf(&b, "- Current Price: $%.2f\n\n", price)

	b.WriteString("Recent News Headlines:\n")
	n := len(headlines)
	if n > maxPromptHeadlines {
		n = maxPromptHeadlines
	}
	if n == 0 {
		b.WriteString("- (none)\n")
	}
	for _, h := range headlines[:n] {
		fmt.Fprintf(&b, "- %s\n", h.Title)
	}

	b.WriteString("\nAnalyze the news sentiment and market conditions. Your confidence must be above 0.7 to trigger a trade.\n")
	b.WriteString("Weight the technical analysis at 70% and news sentiment at 30% in your decision.\n\n")
	b.WriteString("Provide your analysis in JSON format with the following structure:\n")
	b.WriteString(`{"sentiment": "bullish/bearish/neutral", "confidence": 0-1, "reasoning": "brief explanation"}`)
	return b.String()
}

// ParseSignal finds the JSON object in model output and validates it.
func ParseSignal(text string) (types.AdvisorySignal, error) {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return types.AdvisorySignal{}, fmt.Errorf("no JSON object in output: %w", ErrInvalidAdvisorySignal)
	}

	var raw struct {
		Sentiment  string   `json:"sentiment"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(t[start:end+1]), &raw); err != nil {
		return types.AdvisorySignal{}, fmt.Errorf("decode output: %v: %w", err, ErrInvalidAdvisorySignal)
	}
	if raw.Confidence == nil {
		return types.AdvisorySignal{}, fmt.Errorf("missing confidence: %w", ErrInvalidAdvisorySignal)
	}
	return Validate(types.AdvisorySignal{
		Sentiment:  types.Direction(raw.Sentiment),
		Confidence: *raw.Confidence,
		Reasoning:  raw.Reasoning,
	})
}

// Validate normalizes the sentiment label and rejects out-of-range confidence.
func Validate(sig types.AdvisorySignal) (types.AdvisorySignal, error) {
	sig.Sentiment = types.Direction(strings.ToLower(strings.TrimSpace(string(sig.Sentiment))))
	switch sig.Sentiment {
	case types.Bullish, types.Bearish, types.Neutral:
	default:
		return types.AdvisorySignal{}, fmt.Errorf("sentiment %q: %w", sig.Sentiment, ErrInvalidAdvisorySignal)
	}
	if math.IsNaN(sig.Confidence) || sig.Confidence < 0 || sig.Confidence > 1 {
		return types.AdvisorySignal{}, fmt.Errorf("confidence %v: %w", sig.Confidence, ErrInvalidAdvisorySignal)
	}
	return sig, nil
}
