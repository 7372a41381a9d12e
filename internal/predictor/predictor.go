// Package predictor holds the placeholder prediction models. None of
// them perform real inference: the classifiers derive a random category
// from the input text length and the regression model emits noisy
// synthetic values. They exist so the gating, accounting and dispatch
// machinery has something to execute.
package predictor

import (
	"math/rand"
	"sync"
)

// Categories emitted by the placeholder classifiers.
const (
	CategoryA = "Category A"
	CategoryB = "Category B"
)

// Placeholder is a fake classifier shared by the v1 and v2 service
// surfaces. Load is lazy and cheap; Predict never fails.
type Placeholder struct {
	mu      sync.Mutex
	version string
	loaded  bool
}

func NewPlaceholder(version string) *Placeholder {
	return &Placeholder{version: version}
}

// Load marks the model ready. A real model would read weights here.
func (p *Placeholder) Load() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = true
}

// Loaded reports whether Load has run.
func (p *Placeholder) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Version returns the service version this instance backs ("v1"/"v2").
func (p *Placeholder) Version() string { return p.version }

// Predict returns one of two categories, chosen by scaling the input
// length with a random factor and checking parity. Loads lazily on
// first use.
func (p *Placeholder) Predict(text string) string {
	if !p.Loaded() {
		p.Load()
	}
	if int(float64(len(text))*rand.Float64())%2 == 1 {
		return CategoryA
	}
	return CategoryB
}

// PlaceholderRegression returns synthetic predictions: a noisy linear
// series. It is registered as the callable for the seeded regression
// model and runs on the dispatch worker pool.
func PlaceholderRegression() (any, error) {
	const n = 100
	preds := make([]float64, n)
	for i := range preds {
		preds[i] = 3.5*float64(i) + rand.NormFloat64()*0.1
	}
	return preds, nil
}
