package services

import (
	"math/rand/v2"
	"sync"
)

// failureInjector fails a configurable share of uploads after their bytes
// are written. It exists to exercise client retries and rollback.
type failureInjector struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

func newFailureInjector(rate float64, seed int64) *failureInjector {
	return &failureInjector{
		rng:  rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		rate: rate,
	}
}

func (f *failureInjector) fail() bool {
	switch {
	case f.rate <= 0:
		return false
	case f.rate >= 1:
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.rate
}
