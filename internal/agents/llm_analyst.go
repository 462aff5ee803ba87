package agents

import (
	"context"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/graph"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/llm"
	"stock-analyst/internal/types"
)

const replyFormat = `
Reply with JSON only:
{"action": "bullish" | "bearish" | "neutral", "confidence": <number between 0 and 1>, "reasoning": "<explanation>"}`

const shortTermPrompt = `You are an experienced short-term trader of China A-shares. You receive a summary of
recent daily indicators: MACD, RSI6 and RSI14, KDJ, Bollinger band position and on-balance volume.
1. MACD above its signal with rising OBV supports a bullish view.
2. RSI or KDJ in overbought territory together with a break of the upper band warns of a pullback.
3. Oversold readings near the lower band may mark a rebound.
4. When indicators disagree, lower your confidence.` + replyFormat

const longTermPrompt = `You are an experienced long-term equity analyst. You receive reported operating cash flow,
net income and operating profit for recent periods, the MA50 and MA200 trend, and how this week's
volume compares with its average.
1. Steady and growing operating cash flow signals strong fundamentals.
2. Rising earnings support long-term growth.
3. A low market cap to operating profit multiple makes the valuation attractive.
4. Price holding above MA50 and MA200 on expanding volume makes the trend more credible.
5. When indicators contradict each other, lower your confidence.` + replyFormat

type llmAnalyst struct {
	name       string
	prompt     string
	summaryKey string
	completer  interfaces.Completer
	policy     fallback.Policy
}

// NewShortTerm asks the LLM for a view over the short-term indicator summary.
func NewShortTerm(deps Deps) graph.Node {
	return &llmAnalyst{ShortTerm, shortTermPrompt, KeyShortTermSummary, deps.Completer, deps.Policy}
}

// NewLongTerm asks the LLM for a view over trend, volume and reported cash flows.
func NewLongTerm(deps Deps) graph.Node {
	return &llmAnalyst{LongTerm, longTermPrompt, KeyLongTermSummary, deps.Completer, deps.Policy}
}

func (a *llmAnalyst) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	snap, err := snapshotFrom(in)
	if err != nil {
		return graph.Partial{}, err
	}
	if snap.Empty {
		return emit(ctx, in, a.name, neutral("no market data available for "+snap.Ticker))
	}

	messages := []types.ChatMessage{
		{Role: types.RoleSystem, Content: a.prompt},
		{Role: types.RoleUser, Content: in.String(a.summaryKey)},
	}
	sig := fallback.Signal(ctx, a.policy, a.name, func(ctx context.Context) (types.Signal, error) {
		text, err := a.completer.Complete(ctx, messages)
		if err != nil {
			return types.Signal{}, err
		}
		return llm.ParseSignal(text)
	})
	return emit(ctx, in, a.name, sig)
}
