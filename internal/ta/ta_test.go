package ta

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	assert.Equal(t, 4.0, SMA([]float64{1, 2, 3, 4, 5}, 3))
	assert.True(t, math.IsNaN(SMA([]float64{1}, 3)))
}

func TestEMA(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5}
	assert.InDelta(t, 5, EMA(flat, 3), 1e-9)
	up := ramp(30, 10, 1)
	assert.Less(t, EMA(up, 10), up[len(up)-1])
	assert.Greater(t, EMA(up, 10), SMA(up, 30))
}

func TestMACDSignsFollowTrend(t *testing.T) {
	m, _, _ := MACD(ramp(60, 10, 0.5))
	assert.Greater(t, m, 0.0)
	m, _, _ = MACD(ramp(60, 50, -0.5))
	assert.Less(t, m, 0.0)
	m, _, _ = MACD(ramp(10, 1, 1))
	assert.True(t, math.IsNaN(m))
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 100.0, RSI(ramp(20, 1, 1), 14))
	assert.InDelta(t, 0.0, RSI(ramp(20, 40, -1), 14), 1e-9)
	alt := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10, 11, 10}
	assert.InDelta(t, 50.0, RSI(alt, 14), 1e-9)
}

func TestBollingerPosition(t *testing.T) {
	assert.Equal(t, 0.5, BollingerPosition([]float64{3, 3, 3, 3}, 4, 2))
	up := ramp(25, 1, 1)
	assert.Greater(t, BollingerPosition(up, 20, 2), 0.5)
}

func TestATR(t *testing.T) {
	highs := []float64{11, 12, 13, 14}
	lows := []float64{9, 10, 11, 12}
	closes := []float64{10, 11, 12, 13}
	assert.InDelta(t, 2.0, ATR(highs, lows, closes, 3), 1e-9)
	assert.True(t, math.IsNaN(ATR(highs, lows[:2], closes, 3)))
}

func TestADXStrongTrend(t *testing.T) {
	closes := ramp(60, 10, 1)
	highs := ramp(60, 10.5, 1)
	lows := ramp(60, 9.5, 1)
	assert.InDelta(t, 100.0, ADX(highs, lows, closes, 14), 1e-6)
	assert.True(t, math.IsNaN(ADX(highs[:10], lows[:10], closes[:10], 14)))
}

func TestKDJ(t *testing.T) {
	closes := ramp(20, 10, 1)
	highs := ramp(20, 10, 1)
	lows := ramp(20, 9, 1)
	k, d, j := KDJ(highs, lows, closes, 9)
	assert.InDelta(t, 100.0, k, 1e-9)
	assert.InDelta(t, 100.0, d, 1e-9)
	assert.InDelta(t, 100.0, j, 1e-9)
}

func TestOBV(t *testing.T) {
	assert.Equal(t, []float64{0, 100, 50, 50}, OBV([]float64{1, 2, 1, 1}, []float64{10, 100, 50, 70}))
	assert.Nil(t, OBV([]float64{1}, nil))
}

func TestReturnAndVolatility(t *testing.T) {
	assert.InDelta(t, 0.5, Return([]float64{10, 12, 15}, 2), 1e-9)
	assert.True(t, math.IsNaN(Return([]float64{10}, 2)))
	assert.InDelta(t, 0.0, Volatility([]float64{10, 10, 10, 10}, 3), 1e-9)
	assert.Greater(t, Volatility([]float64{10, 12, 9, 13, 8}, 4), 0.0)
}
