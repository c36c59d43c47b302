package features

import "math"

// Columns are the feature names produced by Set, in value order.
var Columns = []string{"rsi", "atr_pct", "ema_gap", "vwap_dev", "tick_imb", "range_pos"}

// Set feeds bars to every indicator and emits one feature vector per bar once
// all of them are warmed up.
type Set struct {
	rsi     *RSI
	atr     *ATR
	fast    *EMA
	slow    *EMA
	vwap    *VWAP
	tick    *TickImb
	bars    int
	warmup  int
	prevBar Bar
	hasPrev bool
}

// NewSet builds a Set with the default periods.
func NewSet() *Set {
	return &Set{
		rsi:    NewRSI(14),
		atr:    NewATR(14),
		fast:   NewEMA(12),
		slow:   NewEMA(26),
		vwap:   NewVWAP(20),
		tick:   NewTickImb(20),
		warmup: 26,
	}
}

// Update adds a bar and returns the feature vector for it. ok is false while
// the indicators are still warming up.
func (s *Set) Update(b Bar) (values []float64, ok bool) {
	s.rsi.Add(b.Close)
	s.atr.Add(b)
	fast := s.fast.Add(b.Close)
	slow := s.slow.Add(b.Close)
	s.vwap.Add((b.High+b.Low+b.Close)/3, b.Volume)

	if s.hasPrev {
		switch {
		case b.Close > s.prevBar.Close:
			s.tick.Add(1)
		case b.Close < s.prevBar.Close:
			s.tick.Add(-1)
		default:
			s.tick.Add(0)
		}
	}
	s.prevBar, s.hasPrev = b, true
	s.bars++

	if s.bars < s.warmup || !s.rsi.Ready() || !s.atr.Ready() || !s.vwap.Full() || b.Close == 0 {
		return nil, false
	}

	vwap, std := s.vwap.Calc()
	vwapDev := 0.0
	if std > 0 {
		vwapDev = (b.Close - vwap) / std
	}

	values = []float64{
		s.rsi.Value(),
		s.atr.Value() / b.Close,
		(fast - slow) / b.Close,
		vwapDev,
		s.tick.Ratio(),
		Imbalance(b.Close-b.Low, b.High-b.Close),
	}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return values, true
}
