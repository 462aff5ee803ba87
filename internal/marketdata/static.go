package marketdata

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"stock-analyst/internal/types"
)

// Static generates a deterministic synthetic history per ticker. It needs no network,
// so it backs offline runs, demos and tests.
type Static struct{}

func NewStatic() *Static {
	return &Static{}
}

func (s *Static) Fetch(_ context.Context, ticker string, start, end time.Time) types.MarketSnapshot {
	if end.Before(start) {
		return EmptySnapshot(ticker, start, end, "static")
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>7|1))

	price := 5 + rng.Float64()*95
	drift := (rng.Float64() - 0.45) * 0.004
	vol := 0.01 + rng.Float64()*0.025
	baseVolume := 1e6 + rng.Float64()*9e6

	var bars []types.PriceBar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := price
		price = math.Max(0.5, price*(1+drift+vol*rng.NormFloat64()))
		high := math.Max(open, price) * (1 + rng.Float64()*vol)
		low := math.Min(open, price) * (1 - rng.Float64()*vol)
		volume := math.Round(baseVolume * (0.5 + rng.Float64()))
		bars = append(bars, types.PriceBar{
			Date:   d.Format(DateLayout),
			Open:   round2(open),
			High:   round2(high),
			Low:    round2(low),
			Close:  round2(price),
			Volume: volume,
			Amount: math.Round(volume * price),
		})
	}
	if len(bars) == 0 {
		return EmptySnapshot(ticker, start, end, "static")
	}

	shares := 2e8 + rng.Float64()*3e9
	last := bars[len(bars)-1].Close
	netIncome := shares * last / (8 + rng.Float64()*40)
	revenue := netIncome / (0.05 + rng.Float64()*0.3)

	items := make([]types.LineItems, 4)
	for i := range items {
		scale := math.Pow(0.92+rng.Float64()*0.1, float64(i))
		ni := netIncome * scale
		ocf := ni * (0.7 + rng.Float64()*0.6)
		capex := ocf * (0.2 + rng.Float64()*0.5)
		items[i] = types.LineItems{
			Period:                 end.AddDate(-i, 0, 0).Format("2006") + "-12-31",
			NetIncome:              math.Round(ni),
			OperatingRevenue:       math.Round(revenue * scale),
			OperatingProfit:        math.Round(ni * 1.25),
			OperatingCashFlow:      math.Round(ocf),
			WorkingCapital:         math.Round(revenue * scale * 0.15),
			DepreciationAmortizing: math.Round(ni * 0.2),
			CapitalExpenditure:     math.Round(capex),
			FreeCashFlow:           math.Round(ocf - capex),
		}
	}

	marketCap := shares * last
	eps := netIncome / shares
	return types.MarketSnapshot{
		Ticker:    ticker,
		StartDate: start.Format(DateLayout),
		EndDate:   end.Format(DateLayout),
		Prices:    bars,
		Metrics: types.FinancialMetrics{
			ReturnOnEquity:       round4(0.02 + rng.Float64()*0.25),
			NetMargin:            round4(netIncome / revenue),
			OperatingMargin:      round4(netIncome * 1.25 / revenue),
			RevenueGrowth:        round4(-0.1 + rng.Float64()*0.4),
			EarningsGrowth:       round4(-0.15 + rng.Float64()*0.5),
			BookValueGrowth:      round4(-0.05 + rng.Float64()*0.25),
			CurrentRatio:         round2(0.8 + rng.Float64()*2),
			DebtToEquity:         round2(0.1 + rng.Float64()),
			FreeCashFlowPerShare: round2(items[0].FreeCashFlow / shares),
			EarningsPerShare:     round2(eps),
			PriceToEarnings:      round2(last / eps),
			PriceToBook:          round2(0.8 + rng.Float64()*5),
			PriceToSales:         round2(marketCap / revenue),
		},
		LineItems: items,
		Market: types.MarketInfo{
			MarketCap:        math.Round(marketCap),
			Volume:           bars[len(bars)-1].Volume,
			AverageVolume:    math.Round(baseVolume),
			FiftyTwoWeekHigh: maxHigh(bars),
			FiftyTwoWeekLow:  minLow(bars),
		},
		Source: "static",
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func maxHigh(bars []types.PriceBar) float64 {
	m := bars[0].High
	for _, b := range bars {
		m = math.Max(m, b.High)
	}
	return m
}

func minLow(bars []types.PriceBar) float64 {
	m := bars[0].Low
	for _, b := range bars {
		m = math.Min(m, b.Low)
	}
	return m
}
