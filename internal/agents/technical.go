package agents

import (
	"context"
	"fmt"
	"math"

	"stock-analyst/internal/graph"
	"stock-analyst/internal/ta"
	"stock-analyst/internal/types"
)

// minTechnicalBars covers SMA50 and a 14-period ADX.
const minTechnicalBars = 60

type strategy struct {
	name       string
	weight     float64
	action     types.Action
	confidence float64
	metrics    map[string]any
}

type technicalNode struct{}

// NewTechnical combines four price-only strategies into one weighted vote.
func NewTechnical() graph.Node {
	return technicalNode{}
}

func (technicalNode) Execute(ctx context.Context, in graph.State) (graph.Partial, error) {
	snap, err := snapshotFrom(in)
	if err != nil {
		return graph.Partial{}, err
	}
	return emit(ctx, in, Technical, TechnicalSignal(snap.Prices))
}

// TechnicalSignal weighs trend 0.35, momentum 0.30, mean reversion 0.20 and volatility 0.15.
// A weighted score above 0.1 is bullish and below -0.1 bearish.
func TechnicalSignal(bars []types.PriceBar) types.Signal {
	if len(bars) < minTechnicalBars {
		return neutral(fmt.Sprintf("insufficient price history: %d bars, need %d", len(bars), minTechnicalBars))
	}
	s := seriesOf(bars)
	strategies := []strategy{
		trendStrategy(s),
		momentumStrategy(s),
		meanReversionStrategy(s),
		volatilityStrategy(s),
	}

	score := 0.0
	details := make(map[string]any, len(strategies))
	for _, st := range strategies {
		score += st.weight * direction(st.action) * st.confidence
		details[st.name] = map[string]any{
			"signal":     st.action,
			"confidence": round(st.confidence, 4),
			"metrics":    st.metrics,
		}
	}

	action := types.Neutral
	switch {
	case score > 0.1:
		action = types.Bullish
	case score < -0.1:
		action = types.Bearish
	}
	conf := math.Abs(score)
	if action == types.Neutral {
		conf = 1 - conf
	}
	return types.Signal{
		Action:     action,
		Confidence: round(clamp01(conf), 4),
		Reasoning:  fmt.Sprintf("weighted technical score %.3f from trend, momentum, mean reversion and volatility", score),
		Details:    details,
	}
}

func direction(a types.Action) float64 {
	switch a {
	case types.Bullish:
		return 1
	case types.Bearish:
		return -1
	}
	return 0
}

func trendStrategy(s series) strategy {
	last := s.closes[len(s.closes)-1]
	sma20 := ta.SMA(s.closes, 20)
	sma50 := ta.SMA(s.closes, 50)
	adx := ta.ADX(s.highs, s.lows, s.closes, 14)

	st := strategy{name: "trend", weight: 0.35, action: types.Neutral, confidence: 0.5}
	switch {
	case last > sma20 && sma20 > sma50:
		st.action = types.Bullish
	case last < sma20 && sma20 < sma50:
		st.action = types.Bearish
	}
	if st.action != types.Neutral {
		st.confidence = clamp01(adx / 100)
	}
	st.metrics = map[string]any{"sma20": round(sma20, 4), "sma50": round(sma50, 4), "adx": round(adx, 2)}
	return st
}

func momentumStrategy(s series) strategy {
	r := func(n int) float64 {
		v := ta.Return(s.closes, n)
		if math.IsNaN(v) {
			return 0
		}
		return v
	}
	m1, m3, m6 := r(21), r(63), r(126)
	score := 0.4*m1 + 0.3*m3 + 0.3*m6

	st := strategy{name: "momentum", weight: 0.30, action: types.Neutral, confidence: 0.5}
	switch {
	case score > 0.05:
		st.action = types.Bullish
	case score < -0.05:
		st.action = types.Bearish
	}
	if st.action != types.Neutral {
		st.confidence = clamp01(math.Abs(score) * 5)
	}
	st.metrics = map[string]any{"momentum_1m": round(m1, 4), "momentum_3m": round(m3, 4), "momentum_6m": round(m6, 4)}
	return st
}

func meanReversionStrategy(s series) strategy {
	rsi := ta.RSI(s.closes, 14)
	pos := ta.BollingerPosition(s.closes, 20, 2)

	st := strategy{name: "mean_reversion", weight: 0.20, action: types.Neutral, confidence: 0.5}
	switch {
	case rsi < 30 && pos < 0.2:
		st.action = types.Bullish
	case rsi > 70 && pos > 0.8:
		st.action = types.Bearish
	}
	if st.action != types.Neutral {
		st.confidence = clamp01(math.Abs(pos-0.5) * 2)
	}
	st.metrics = map[string]any{"rsi14": round(rsi, 2), "bollinger_position": round(pos, 4)}
	return st
}

// volatilityStrategy reads calm regimes as constructive and volatile ones as risky.
func volatilityStrategy(s series) strategy {
	recent := ta.Volatility(s.closes, 21)
	longer := ta.Volatility(s.closes, min(len(s.closes)-1, 63))

	st := strategy{name: "volatility", weight: 0.15, action: types.Neutral, confidence: 0.5}
	regime := 1.0
	if longer > 0 && !math.IsNaN(recent) {
		regime = recent / longer
	}
	switch {
	case regime < 0.8:
		st.action = types.Bullish
	case regime > 1.2:
		st.action = types.Bearish
	}
	if st.action != types.Neutral {
		st.confidence = clamp01(math.Abs(regime - 1))
	}
	st.metrics = map[string]any{"volatility_21d": round(recent, 4), "volatility_regime": round(regime, 4)}
	return st
}
