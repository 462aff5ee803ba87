package agents

import (
	"context"
	"fmt"
	"time"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/marketdata"
)

type marketDataNode struct {
	deps Deps
}

// NewMarketData is the entry node: it settles the date range, fetches the snapshot
// and prepares the summaries the LLM analysts read.
func NewMarketData(deps Deps) graph.Node {
	return &marketDataNode{deps: deps}
}

func (n *marketDataNode) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	ticker := in.String(KeyTicker)
	if ticker == "" {
		return graph.Partial{}, fmt.Errorf("%s missing from input state", KeyTicker)
	}
	start, end, err := ResolveRange(in.String(KeyStartDate), in.String(KeyEndDate), n.deps.now(), n.deps.LookbackDays)
	if err != nil {
		return graph.Partial{}, err
	}

	snap := n.deps.Data.Fetch(ctx, ticker, start, end)

	msg := fmt.Sprintf("Fetched %d daily bars for %s from %s to %s", len(snap.Prices), ticker, snap.StartDate, snap.EndDate)
	if snap.Empty {
		msg = fmt.Sprintf("No price data available for %s from %s to %s; continuing with empty data", ticker, snap.StartDate, snap.EndDate)
	}
	return graph.Partial{}.
		Say(msg).
		Set(KeyStartDate, snap.StartDate).
		Set(KeyEndDate, snap.EndDate).
		Set(KeySnapshot, snap).
		Set(KeyShortTermSummary, ShortTermSummary(snap)).
		Set(KeyLongTermSummary, LongTermSummary(snap)), nil
}

// ResolveRange applies the date defaults: the end is yesterday unless an earlier day is
// given, and the start defaults to lookbackDays before the end.
func ResolveRange(startDate, endDate string, now time.Time, lookbackDays int) (time.Time, time.Time, error) {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	y, m, d := now.AddDate(0, 0, -1).Date()
	yesterday := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	end := yesterday
	if endDate != "" {
		parsed, err := time.Parse(marketdata.DateLayout, endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", endDate, err)
		}
		if parsed.Before(yesterday) {
			end = parsed
		}
	}

	start := end.AddDate(0, 0, -lookbackDays)
	if startDate != "" {
		parsed, err := time.Parse(marketdata.DateLayout, startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", startDate, err)
		}
		start = parsed
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date %s is after end_date %s", start.Format(marketdata.DateLayout), end.Format(marketdata.DateLayout))
	}
	return start, end, nil
}
