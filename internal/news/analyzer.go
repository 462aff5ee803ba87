package news

import (
	"context"
	"fmt"
	"strings"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/llm"
	"stock-analyst/internal/trace"
	"stock-analyst/internal/types"
)

const analyzerSystemPrompt = `You are a financial news sentiment analyst covering China A-share companies.
You receive recent headlines about one listed company. Judge their combined effect on the stock's
outlook over the next few weeks. Ignore headlines that are not about the company.
Reply with JSON only: {"action": "bullish" | "bearish" | "neutral", "confidence": <0-1>, "reasoning": "<short explanation>"}`

// Analyzer classifies a batch of headlines into one signal with the LLM.
type Analyzer struct {
	completer interfaces.Completer
	policy    fallback.Policy
}

func NewAnalyzer(completer interfaces.Completer, policy fallback.Policy) *Analyzer {
	return &Analyzer{completer: completer, policy: policy}
}

// Analyze never fails: without headlines it is neutral, and when the model cannot be
// reached or read the degraded neutral signal is returned.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, headlines []types.NewsHeadline) types.Signal {
	ctx, span := trace.StartSpan(ctx, "news.Analyze")
	defer span.End()

	if len(headlines) == 0 {
		return types.Signal{
			Action:     types.Neutral,
			Confidence: fallback.NeutralConfidence,
			Reasoning:  "no recent news found for " + ticker,
			Details:    map[string]any{"headline_count": 0},
		}
	}

	prompt := []types.ChatMessage{
		{Role: types.RoleSystem, Content: analyzerSystemPrompt},
		{Role: types.RoleUser, Content: buildHeadlinePrompt(ticker, headlines)},
	}
	sig := fallback.Signal(ctx, a.policy, "news_sentiment", func(ctx context.Context) (types.Signal, error) {
		text, err := a.completer.Complete(ctx, prompt)
		if err != nil {
			return types.Signal{}, err
		}
		return llm.ParseSignal(text)
	})
	sig.Details = map[string]any{"headline_count": len(headlines)}
	return sig
}

func buildHeadlinePrompt(ticker string, headlines []types.NewsHeadline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stock %s, %d recent headlines:\n", ticker, len(headlines))
	for i, h := range headlines {
		fmt.Fprintf(&sb, "%d. %s", i+1, h.Title)
		if h.PublishedAt != "" {
			fmt.Fprintf(&sb, " (%s)", h.PublishedAt)
		}
		if h.Source != "" {
			fmt.Fprintf(&sb, " [%s]", h.Source)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
