package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

type MACDResult struct {
	DIF  []float64
	DEA  []float64
	Hist []float64
}

type KDJResult struct {
	K []float64
	D []float64
	J []float64
}

type BOLLResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// kdjSeed is the starting value of both K and D.
const kdjSeed = 50.0

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple moving average; indices before period-1 are NaN.
func SMA(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	sma := talib.Sma(closes, period)
	copy(out[period-1:], sma[period-1:])
	return out
}

// EMA uses smoothing 2/(period+1) seeded with the SMA of the first period
// values. Leading NaNs are skipped, so the EMA of a partially defined series
// starts where that series does.
func EMA(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}
	ema := talib.Ema(values[start:], period)
	copy(out[start+period-1:], ema[period-1:])
	return out
}

func CalcMACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	dif := nanSeries(n)
	for i := range closes {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			dif[i] = fastEMA[i] - slowEMA[i]
		}
	}
	dea := EMA(dif, signal)
	hist := nanSeries(n)
	for i := range closes {
		if !math.IsNaN(dif[i]) && !math.IsNaN(dea[i]) {
			hist[i] = 2 * (dif[i] - dea[i])
		}
	}
	return MACDResult{DIF: dif, DEA: dea, Hist: hist}
}

// CalcRSI averages the trailing period gains and losses with a plain mean.
// Indices before period are NaN; a window without losses yields 100.
func CalcRSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSeries(n)
	if period <= 0 || n <= period {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < n; i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// CalcKDJ computes RSV over the period high/low window and smooths it with
// K = (K'*(m-1) + RSV)/m and D = (D'*(d-1) + K)/d, both starting at 50.
// A flat window has RSV 0.
func CalcKDJ(highs, lows, closes []float64, period, kSmooth, dSmooth int) KDJResult {
	n := len(closes)
	res := KDJResult{K: nanSeries(n), D: nanSeries(n), J: nanSeries(n)}
	if period <= 0 || kSmooth <= 0 || dSmooth <= 0 || n < period || len(highs) < n || len(lows) < n {
		return res
	}

	highest := rollingExtreme(highs[:n], period, talib.Max)
	lowest := rollingExtreme(lows[:n], period, talib.Min)

	prevK, prevD := kdjSeed, kdjSeed
	for i := period - 1; i < n; i++ {
		hh, ll := highest[i], lowest[i]
		rsv := 0.0
		if hh != ll {
			rsv = 100 * (closes[i] - ll) / (hh - ll)
		}
		k := (prevK*float64(kSmooth-1) + rsv) / float64(kSmooth)
		d := (prevD*float64(dSmooth-1) + k) / float64(dSmooth)
		res.K[i], res.D[i], res.J[i] = k, d, 3*k-2*d
		prevK, prevD = k, d
	}
	return res
}

func rollingExtreme(values []float64, period int, fn func([]float64, int) []float64) []float64 {
	if period == 1 {
		return values
	}
	return fn(values, period)
}

// CalcBOLL returns SMA-centred bands at mult population standard deviations.
func CalcBOLL(closes []float64, period int, mult float64) BOLLResult {
	n := len(closes)
	res := BOLLResult{Upper: nanSeries(n), Middle: nanSeries(n), Lower: nanSeries(n)}
	if period <= 0 || n < period {
		return res
	}

	middle := talib.Sma(closes, period)
	dev := talib.StdDev(closes, period, 1)
	for i := period - 1; i < n; i++ {
		res.Middle[i] = middle[i]
		res.Upper[i] = middle[i] + mult*dev[i]
		res.Lower[i] = middle[i] - mult*dev[i]
	}
	return res
}
