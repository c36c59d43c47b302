// Package features computes the bar-based indicators recorded as feature rows
// whenever a strategy signal fires.
package features

import (
	"math"
	"time"
)

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// EMA is an exponential moving average seeded with the first value.
type EMA struct {
	alpha float64
	value float64
	n     int
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		period = 1
	}
	return &EMA{alpha: 2 / float64(period+1)}
}

func (e *EMA) Add(x float64) float64 {
	if e.n == 0 {
		e.value = x
	} else {
		e.value += e.alpha * (x - e.value)
	}
	e.n++
	return e.value
}

func (e *EMA) Value() float64 { return e.value }

// RSI is Wilder's relative strength index.
type RSI struct {
	period  int
	prev    float64
	avgGain float64
	avgLoss float64
	n       int
}

func NewRSI(period int) *RSI {
	if period <= 0 {
		period = 14
	}
	return &RSI{period: period}
}

func (r *RSI) Add(close float64) {
	if r.n == 0 {
		r.prev = close
		r.n++
		return
	}

	change := close - r.prev
	r.prev = close
	gain, loss := math.Max(change, 0), math.Max(-change, 0)

	p := float64(r.period)
	if r.n <= r.period {
		// simple average over the first period changes
		r.avgGain += gain / p
		r.avgLoss += loss / p
	} else {
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}
	r.n++
}

// Ready reports whether period price changes have been seen.
func (r *RSI) Ready() bool { return r.n > r.period }

func (r *RSI) Value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

// ATR is Wilder's average true range.
type ATR struct {
	period    int
	prevClose float64
	value     float64
	n         int
}

func NewATR(period int) *ATR {
	if period <= 0 {
		period = 14
	}
	return &ATR{period: period}
}

func (a *ATR) Add(b Bar) {
	tr := b.High - b.Low
	if a.n > 0 {
		tr = math.Max(tr, math.Max(math.Abs(b.High-a.prevClose), math.Abs(b.Low-a.prevClose)))
	}
	a.prevClose = b.Close

	p := float64(a.period)
	if a.n < a.period {
		a.value += tr / p
	} else {
		a.value = (a.value*(p-1) + tr) / p
	}
	a.n++
}

func (a *ATR) Ready() bool { return a.n >= a.period }

func (a *ATR) Value() float64 { return a.value }
