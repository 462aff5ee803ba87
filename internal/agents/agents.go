// Package agents holds the nodes of the analysis workflow: the market data entry,
// six analysts and the portfolio manager join.
package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"stock-analyst/internal/fallback"
	"stock-analyst/internal/fusion"
	"stock-analyst/internal/graph"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/news"
	"stock-analyst/internal/types"
)

// Node names.
const (
	MarketData       = "market_data"
	ShortTerm        = "short_term"
	LongTerm         = "long_term"
	Technical        = "technical"
	Fundamentals     = "fundamentals"
	Sentiment        = "sentiment"
	Valuation        = "valuation"
	PortfolioManager = "portfolio_manager"
)

// Request keys seeded into the initial state.
const (
	KeyTicker    = "ticker"
	KeyStartDate = "start_date"
	KeyEndDate   = "end_date"
)

// Keys written by market_data.
const (
	KeySnapshot         = MarketData + ".snapshot"
	KeyShortTermSummary = MarketData + ".short_term_summary"
	KeyLongTermSummary  = MarketData + ".long_term_summary"
	KeyDecision         = PortfolioManager + ".decision"
)

// MetaShowReasoning makes every analyst log its reasoning at info level.
const MetaShowReasoning = "show_reasoning"

// SignalKey is where an analyst stores its decoded signal.
func SignalKey(analyst string) string { return analyst + ".signal" }

// Deps are the collaborators the nodes share.
type Deps struct {
	Data      interfaces.MarketDataSource
	Completer interfaces.Completer
	News      *news.Service
	Policy    fallback.Policy
	// LookbackDays is the default range when the request has no start date.
	LookbackDays int
	// Now is overridable in tests.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func snapshotFrom(in graph.State) (types.MarketSnapshot, error) {
	v, ok := in.Get(KeySnapshot)
	if !ok {
		return types.MarketSnapshot{}, fmt.Errorf("%s missing from input state", KeySnapshot)
	}
	snap, ok := v.(types.MarketSnapshot)
	if !ok {
		return types.MarketSnapshot{}, fmt.Errorf("%s has type %T", KeySnapshot, v)
	}
	return snap, nil
}

// emit turns a signal into the analyst's partial: one JSON message plus the signal key.
func emit(ctx context.Context, in graph.State, analyst string, sig types.Signal) (graph.Partial, error) {
	sig.Confidence = clamp01(sig.Confidence)
	content, err := fusion.EncodeSignal(sig)
	if err != nil {
		return graph.Partial{}, fmt.Errorf("encode %s signal: %w", analyst, err)
	}
	ticker := in.String(KeyTicker)
	logger.Signal(ctx, ticker, analyst, string(sig.Action), sig.Confidence)
	if in.Metadata.Bool(MetaShowReasoning) {
		logger.Info(ctx, "Analyst reasoning", "analyst", analyst, "ticker", ticker, "reasoning", sig.Reasoning)
	}
	return graph.Partial{}.Say(content).Set(SignalKey(analyst), sig), nil
}

func neutral(reasoning string) types.Signal {
	return types.Signal{Action: types.Neutral, Confidence: fallback.NeutralConfidence, Reasoning: reasoning}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
