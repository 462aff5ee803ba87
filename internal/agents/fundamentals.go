package agents

import (
	"context"
	"fmt"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/types"
)

type fundamentalsNode struct{}

// NewFundamentals scores profitability, growth, financial health and price ratios.
func NewFundamentals() graph.Node {
	return fundamentalsNode{}
}

func (fundamentalsNode) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	snap, err := snapshotFrom(in)
	if err != nil {
		return graph.Partial{}, err
	}
	return emit(ctx, in, Fundamentals, FundamentalsSignal(snap.Metrics))
}

func scoreAction(score int) types.Action {
	switch {
	case score >= 2:
		return types.Bullish
	case score == 0:
		return types.Bearish
	}
	return types.Neutral
}

func above(v, threshold float64) int {
	if v > threshold {
		return 1
	}
	return 0
}

// cheap counts a positive ratio under its threshold; a non-positive ratio means losses
// or missing data and never counts as cheap.
func cheap(v, threshold float64) int {
	if v > 0 && v < threshold {
		return 1
	}
	return 0
}

// FundamentalsSignal rates each of the four areas bullish at a score of 2 or more and
// bearish at 0. The overall action follows the larger side; confidence is that side's
// share of the four areas.
func FundamentalsSignal(m types.FinancialMetrics) types.Signal {
	if m == (types.FinancialMetrics{}) {
		return neutral("no financial metrics available")
	}

	profitability := above(m.ReturnOnEquity, 0.15) + above(m.NetMargin, 0.20) + above(m.OperatingMargin, 0.15)
	growth := above(m.RevenueGrowth, 0.10) + above(m.EarningsGrowth, 0.10) + above(m.BookValueGrowth, 0.10)

	health := above(m.CurrentRatio, 1.5)
	if m.DebtToEquity > 0 && m.DebtToEquity < 0.5 {
		health++
	}
	if m.FreeCashFlowPerShare > 0 && m.EarningsPerShare > 0 && m.FreeCashFlowPerShare > m.EarningsPerShare*0.8 {
		health++
	}

	ratios := cheap(m.PriceToEarnings, 25) + cheap(m.PriceToBook, 3) + cheap(m.PriceToSales, 5)

	areas := []struct {
		name   string
		score  int
		detail string
	}{
		{"profitability", profitability, fmt.Sprintf("ROE %.2f%% (15%%), net margin %.2f%% (20%%), operating margin %.2f%% (15%%)",
			m.ReturnOnEquity*100, m.NetMargin*100, m.OperatingMargin*100)},
		{"growth", growth, fmt.Sprintf("revenue %.2f%%, earnings %.2f%%, book value %.2f%% (10%% each)",
			m.RevenueGrowth*100, m.EarningsGrowth*100, m.BookValueGrowth*100)},
		{"financial_health", health, fmt.Sprintf("current ratio %.2f (1.5), debt to equity %.2f (0.5), FCF/share %.2f vs EPS %.2f",
			m.CurrentRatio, m.DebtToEquity, m.FreeCashFlowPerShare, m.EarningsPerShare)},
		{"price_ratios", ratios, fmt.Sprintf("P/E %.2f (25), P/B %.2f (3), P/S %.2f (5)",
			m.PriceToEarnings, m.PriceToBook, m.PriceToSales)},
	}

	bull, bear := 0, 0
	details := make(map[string]any, len(areas))
	for _, a := range areas {
		act := scoreAction(a.score)
		switch act {
		case types.Bullish:
			bull++
		case types.Bearish:
			bear++
		}
		details[a.name] = map[string]any{"signal": act, "score": a.score, "details": a.detail}
	}

	action := types.Neutral
	switch {
	case bull > bear:
		action = types.Bullish
	case bear > bull:
		action = types.Bearish
	}
	return types.Signal{
		Action:     action,
		Confidence: float64(max(bull, bear)) / float64(len(areas)),
		Reasoning:  fmt.Sprintf("%d of %d fundamental areas bullish, %d bearish", bull, len(areas), bear),
		Details:    details,
	}
}
