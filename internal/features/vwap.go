package features

import (
	"container/ring"
	"math"
	"sync"
)

type sample struct {
	p, v float64
}

// VWAP is a volume-weighted average price over the last size bars.
type VWAP struct {
	ring  *ring.Ring
	count int
	size  int
	mu    sync.RWMutex
}

func NewVWAP(size int) *VWAP {
	if size <= 0 {
		size = 1
	}
	return &VWAP{ring: ring.New(size), size: size}
}

func (v *VWAP) Add(price, volume float64) {
	v.mu.Lock()
	v.ring.Value = sample{price, volume}
	v.ring = v.ring.Next()
	if v.count < v.size {
		v.count++
	}
	v.mu.Unlock()
}

// Full reports whether the window has been filled once.
func (v *VWAP) Full() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count == v.size
}

// Calc returns the VWAP and the standard deviation of prices in the window.
func (v *VWAP) Calc() (value, std float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var pv, vv float64
	var count int
	var sum, sumSquared float64

	v.ring.Do(func(x any) {
		if s, ok := x.(sample); ok {
			pv += s.p * s.v
			vv += s.v
			sum += s.p
			sumSquared += s.p * s.p
			count++
		}
	})

	if vv == 0 || count == 0 {
		return 0, 0
	}

	value = pv / vv
	mean := sum / float64(count)
	variance := (sumSquared / float64(count)) - (mean * mean)
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return
}
