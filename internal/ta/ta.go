package ta

import "math"

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}

// EMASeries seeds with the first value; the result has the same length as vals.
func EMASeries(vals []float64, n int) []float64 {
	if len(vals) == 0 || n <= 0 {
		return nil
	}
	k := 2.0 / float64(n+1)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1-k)
	}
	return out
}

func EMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	s := EMASeries(vals, n)
	return s[len(s)-1]
}

// MACD uses the 12/26/9 convention.
func MACD(closes []float64) (macd, signal, hist float64) {
	if len(closes) < 26 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	fast := EMASeries(closes, 12)
	slow := EMASeries(closes, 26)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}
	sig := EMASeries(line, 9)
	macd = line[len(line)-1]
	signal = sig[len(sig)-1]
	return macd, signal, macd - signal
}

func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for i := len(vals) - n; i < len(vals); i++ {
		d := vals[i] - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	up = mid + k*sd
	low = mid - k*sd
	return
}

// BollingerPosition is where the last close sits in the band: 0 at the lower band,
// 1 at the upper. A flat band gives 0.5.
func BollingerPosition(closes []float64, n int, k float64) float64 {
	_, up, low := Bollinger(closes, n, k)
	if math.IsNaN(up) {
		return math.NaN()
	}
	if up == low {
		return 0.5
	}
	return (closes[len(closes)-1] - low) / (up - low)
}

func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return math.NaN()
	}
	n := period
	if n <= 0 || len(closes) < n+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - n; i < len(closes); i++ {
		tr1 := highs[i] - lows[i]
		tr2 := math.Abs(highs[i] - closes[i-1])
		tr3 := math.Abs(lows[i] - closes[i-1])
		sum += math.Max(tr1, math.Max(tr2, tr3))
	}
	return sum / float64(n)
}

// ADX with Wilder smoothing. Needs 2*period+1 bars.
func ADX(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || len(highs) != n || len(lows) != n || n < 2*period+1 {
		return math.NaN()
	}
	plus := make([]float64, n)
	minus := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plus[i] = up
		}
		if down > up && down > 0 {
			minus[i] = down
		}
	}

	dx := func(p, m float64) float64 {
		if p+m == 0 {
			return 0
		}
		return 100 * math.Abs(p-m) / (p + m)
	}

	p, m := 0.0, 0.0
	for i := 1; i <= period; i++ {
		p += plus[i]
		m += minus[i]
	}
	p0 := float64(period)
	sumDX := dx(p, m)
	var adx float64
	for i := period + 1; i < n; i++ {
		p = p - p/p0 + plus[i]
		m = m - m/p0 + minus[i]
		d := dx(p, m)
		switch {
		case i < 2*period:
			sumDX += d
		case i == 2*period:
			sumDX += d
			adx = sumDX / p0
		default:
			adx = (adx*(p0-1) + d) / p0
		}
	}
	return adx
}

// KDJ returns the raw stochastic K, its 3-bar mean D and J = 3K - 2D.
func KDJ(highs, lows, closes []float64, period int) (k, d, j float64) {
	n := len(closes)
	if period <= 0 || len(highs) != n || len(lows) != n || n < period+2 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	raw := func(end int) float64 {
		hi, lo := highs[end], lows[end]
		for i := end - period + 1; i <= end; i++ {
			hi = math.Max(hi, highs[i])
			lo = math.Min(lo, lows[i])
		}
		if hi == lo {
			return 50
		}
		return 100 * (closes[end] - lo) / (hi - lo)
	}
	k = raw(n - 1)
	d = (raw(n-1) + raw(n-2) + raw(n-3)) / 3
	return k, d, 3*k - 2*d
}

// OBV returns the on-balance volume series.
func OBV(closes, volumes []float64) []float64 {
	if len(closes) == 0 || len(closes) != len(volumes) {
		return nil
	}
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// Return is the fractional change over the last n bars.
func Return(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 || closes[len(closes)-n-1] == 0 {
		return math.NaN()
	}
	base := closes[len(closes)-n-1]
	return (closes[len(closes)-1] - base) / base
}

// Volatility is the annualized standard deviation of the last n daily returns.
func Volatility(closes []float64, n int) float64 {
	if n <= 1 || len(closes) < n+1 {
		return math.NaN()
	}
	rets := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return math.NaN()
		}
		rets = append(rets, closes[i]/closes[i-1]-1)
	}
	return StdDev(rets, n) * math.Sqrt(252)
}
