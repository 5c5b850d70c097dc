package model

import "sync"

// CategoryRates remembers the bandwidth chosen for each network category.
// The collaborator fills it once per category on first use; networks of a
// category without an explicit rate take the stored value.
type CategoryRates struct {
	mu    sync.RWMutex
	rates map[Category]float64
}

// NewCategoryRates returns an empty registry.
func NewCategoryRates() *CategoryRates {
	return &CategoryRates{rates: make(map[Category]float64)}
}

// Set records rate for c. Non-positive rates are replaced by DefaultMaxRate.
func (r *CategoryRates) Set(c Category, rate float64) {
	if rate <= 0 {
		rate = DefaultMaxRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[c] = rate
}

// Known reports whether a rate was already recorded for c.
func (r *CategoryRates) Known(c Category) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rates[c]
	return ok
}

// RateFor returns the recorded rate for c, or DefaultMaxRate.
func (r *CategoryRates) RateFor(c Category) float64 {
	if r == nil {
		return DefaultMaxRate
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rate, ok := r.rates[c]; ok {
		return rate
	}
	return DefaultMaxRate
}
