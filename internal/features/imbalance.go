package features

import "sync"

// Imbalance returns (a-b)/(a+b), or 0 when both are zero.
func Imbalance(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	return (a - b) / (a + b)
}

// TickImb is the mean sign of the last n close-to-close moves.
type TickImb struct {
	buf []int8
	max int
	mu  sync.RWMutex
}

func NewTickImb(n int) *TickImb {
	if n <= 0 {
		n = 1
	}
	return &TickImb{max: n}
}

func (t *TickImb) Add(sign int8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == t.max {
		t.buf = t.buf[1:]
	}
	t.buf = append(t.buf, sign)
}

func (t *TickImb) Ratio() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.buf) == 0 {
		return 0
	}
	var s int
	for _, v := range t.buf {
		s += int(v)
	}
	return float64(s) / float64(len(t.buf))
}
