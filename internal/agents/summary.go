package agents

import (
	"fmt"
	"math"
	"strings"

	"stock-analyst/internal/ta"
	"stock-analyst/internal/types"
)

type series struct {
	closes, highs, lows, volumes []float64
}

func seriesOf(bars []types.PriceBar) series {
	s := series{
		closes:  make([]float64, len(bars)),
		highs:   make([]float64, len(bars)),
		lows:    make([]float64, len(bars)),
		volumes: make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.closes[i] = b.Close
		s.highs[i] = b.High
		s.lows[i] = b.Low
		s.volumes[i] = b.Volume
	}
	return s
}

func tail(s series, n int) series {
	if len(s.closes) <= n {
		return s
	}
	from := len(s.closes) - n
	return series{s.closes[from:], s.highs[from:], s.lows[from:], s.volumes[from:]}
}

// ShortTermSummary describes the last weeks of trading for the short-term analyst.
func ShortTermSummary(snap types.MarketSnapshot) string {
	if len(snap.Prices) < 30 {
		return fmt.Sprintf("Only %d daily bars are available for %s; short-term indicators cannot be computed.", len(snap.Prices), snap.Ticker)
	}
	s := tail(seriesOf(snap.Prices), 60)
	last := s.closes[len(s.closes)-1]

	macd, signal, _ := ta.MACD(s.closes)
	rsi6 := ta.RSI(s.closes, 6)
	rsi14 := ta.RSI(s.closes, 14)
	_, _, j := ta.KDJ(s.highs, s.lows, s.closes, 9)
	_, up, low := ta.Bollinger(s.closes, 20, 2)
	pos := ta.BollingerPosition(s.closes, 20, 2)
	obv := ta.OBV(s.closes, s.volumes)
	obvSlope := (obv[len(obv)-1] - obv[len(obv)-21]) / 20

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s over the last %d sessions:\n", snap.Ticker, len(s.closes))
	fmt.Fprintf(&sb, "- close %.2f, 5-day change %s, 20-day change %s\n", last, pct(ta.Return(s.closes, 5)), pct(ta.Return(s.closes, 20)))
	fmt.Fprintf(&sb, "- MACD %.4f vs signal %.4f (%s)\n", macd, signal, crossWord(macd, signal))
	fmt.Fprintf(&sb, "- RSI6 %.2f, RSI14 %.2f\n", rsi6, rsi14)
	fmt.Fprintf(&sb, "- KDJ J %.2f, %s\n", j, kdjWord(j))
	fmt.Fprintf(&sb, "- price sits at %.1f%% of the Bollinger band (%.2f to %.2f)\n", pos*100, low, up)
	switch {
	case last > up:
		sb.WriteString("- price broke above the upper band; short-term overheating or pullback risk\n")
	case last < low:
		sb.WriteString("- price broke below the lower band; oversold, possible rebound\n")
	}
	fmt.Fprintf(&sb, "- OBV 20-day slope %.0f per session\n", obvSlope)
	return sb.String()
}

// LongTermSummary covers trend, volume and reported cash flows for the long-term analyst.
func LongTermSummary(snap types.MarketSnapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s long-term view:\n", snap.Ticker)

	s := seriesOf(snap.Prices)
	if n := len(s.closes); n > 0 {
		last := s.closes[n-1]
		ma50 := ta.SMA(s.closes, 50)
		ma200 := ta.SMA(s.closes, 200)
		fmt.Fprintf(&sb, "- close %.2f, MA50 %s, MA200 %s\n", last, num(ma50), num(ma200))
		if !math.IsNaN(ma50) && !math.IsNaN(ma200) {
			fmt.Fprintf(&sb, "- price is %s MA50 and %s MA200\n", aboveWord(last, ma50), aboveWord(last, ma200))
		}
		if n >= 25 {
			week := ta.SMA(s.volumes, 5)
			hist := ta.SMA(s.volumes, min(n, 120))
			ratio := week / hist
			word := "in line with"
			switch {
			case ratio > 1.2:
				word = "expanding versus"
			case ratio < 0.8:
				word = "contracting versus"
			}
			fmt.Fprintf(&sb, "- this week's volume is %s its average (ratio %.2f)\n", word, ratio)
		}
	} else {
		sb.WriteString("- no price history available\n")
	}

	if len(snap.LineItems) > 0 {
		sb.WriteString("- reported periods (most recent first):\n")
		for _, li := range snap.LineItems {
			fmt.Fprintf(&sb, "  %s: operating cash flow %.0f, net income %.0f, operating profit %.0f\n",
				li.Period, li.OperatingCashFlow, li.NetIncome, li.OperatingProfit)
		}
		if op := snap.LineItems[0].OperatingProfit; op > 0 && snap.Market.MarketCap > 0 {
			fmt.Fprintf(&sb, "- market cap / operating profit %.2f\n", snap.Market.MarketCap/op)
		}
	}
	if g := snap.Metrics.EarningsGrowth; g != 0 {
		fmt.Fprintf(&sb, "- earnings growth %s, revenue growth %s\n", pct(g), pct(snap.Metrics.RevenueGrowth))
	}
	return sb.String()
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func crossWord(macd, signal float64) string {
	if macd >= signal {
		return "above signal"
	}
	return "below signal"
}

func kdjWord(j float64) string {
	switch {
	case j > 80:
		return "overbought"
	case j < 20:
		return "oversold"
	}
	return "neutral"
}

func aboveWord(v, ref float64) string {
	if v >= ref {
		return "above"
	}
	return "below"
}
