package agents

import (
	"context"
	"fmt"
	"math"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/types"
)

// valuationGapThreshold is how far intrinsic value must sit from market cap to take a side.
const valuationGapThreshold = 0.15

type valuationNode struct{}

// NewValuation compares owner-earnings and DCF intrinsic values with the market cap.
func NewValuation() graph.Node {
	return valuationNode{}
}

func (valuationNode) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	snap, err := snapshotFrom(in)
	if err != nil {
		return graph.Partial{}, err
	}
	return emit(ctx, in, Valuation, ValuationSignal(snap))
}

// ValuationSignal averages the two intrinsic values and measures the gap to market cap.
func ValuationSignal(snap types.MarketSnapshot) types.Signal {
	marketCap := snap.Market.MarketCap
	if marketCap <= 0 || len(snap.LineItems) == 0 {
		return neutral("insufficient data for valuation")
	}
	cur := snap.LineItems[0]
	growth := snap.Metrics.EarningsGrowth

	var wcChange float64
	if len(snap.LineItems) > 1 {
		wcChange = cur.WorkingCapital - snap.LineItems[1].WorkingCapital
	}
	owner := OwnerEarningsValue(cur.NetIncome, cur.DepreciationAmortizing, cur.CapitalExpenditure, wcChange, growth)
	fcf := cur.FreeCashFlow
	if fcf == 0 {
		fcf = cur.OperatingCashFlow - cur.CapitalExpenditure
	}
	dcf := DCFValue(fcf, growth)

	intrinsic := (owner + dcf) / 2
	gap := (intrinsic - marketCap) / marketCap

	action := types.Neutral
	switch {
	case gap > valuationGapThreshold:
		action = types.Bullish
	case gap < -valuationGapThreshold:
		action = types.Bearish
	}
	conf := clamp01(math.Abs(gap))
	if action == types.Neutral {
		conf = 0.5
	}
	return types.Signal{
		Action:     action,
		Confidence: round(conf, 4),
		Reasoning:  fmt.Sprintf("intrinsic value %.0f vs market cap %.0f, gap %.2f%%", intrinsic, marketCap, gap*100),
		Details: map[string]any{
			"owner_earnings_value": math.Round(owner),
			"dcf_value":            math.Round(dcf),
			"market_cap":           marketCap,
			"gap":                  round(gap, 4),
		},
	}
}

// OwnerEarningsValue discounts five years of growing owner earnings at 15% plus a
// terminal value, then applies a 25% margin of safety. Non-positive owner earnings are
// worth nothing.
func OwnerEarningsValue(netIncome, depreciation, capex, workingCapitalChange, growth float64) float64 {
	owner := netIncome + depreciation - capex - workingCapitalChange
	if owner <= 0 {
		return 0
	}
	const (
		requiredReturn = 0.15
		marginOfSafety = 0.25
		years          = 5
		terminalGrowth = 0.03
	)
	growth = min(max(growth, -0.2), 0.25)

	pv := 0.0
	for y := 1; y <= years; y++ {
		pv += owner * math.Pow(1+growth, float64(y)) / math.Pow(1+requiredReturn, float64(y))
	}
	final := owner * math.Pow(1+growth, years)
	terminal := final * (1 + terminalGrowth) / (requiredReturn - terminalGrowth) / math.Pow(1+requiredReturn, years)
	return (pv + terminal) * (1 - marginOfSafety)
}

// DCFValue projects five years of free cash flow at 10% discount and 3% terminal growth.
func DCFValue(fcf, growth float64) float64 {
	if fcf <= 0 {
		return 0
	}
	const (
		discount       = 0.10
		terminalGrowth = 0.03
		years          = 5
	)
	growth = min(max(growth, -0.2), 0.25)

	pv := 0.0
	for y := 1; y <= years; y++ {
		pv += fcf * math.Pow(1+growth, float64(y)) / math.Pow(1+discount, float64(y))
	}
	final := fcf * math.Pow(1+growth, years)
	terminal := final * (1 + terminalGrowth) / (discount - terminalGrowth) / math.Pow(1+discount, years)
	return pv + terminal
}
