// Package risk aggregates heterogeneous trait signals into a bounded score
// with a ranked explanation.
package risk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/opensource-security/shrike/internal/domain"
)

// MaxScore caps the aggregated risk score.
const MaxScore = 100

// Engine scores analyses against a weight table. The table is runtime
// adjustable; reads during scoring and bulk updates are synchronized so
// concurrent batch workers never observe a partial update.
type Engine struct {
	mu      sync.RWMutex
	weights map[domain.FactorKind]int
}

// NewEngine creates an engine with the reference weight table.
func NewEngine() *Engine {
	return &Engine{weights: DefaultWeights()}
}

// Score turns traits and brand matches into a clamped risk score and a list
// of contributing factors sorted by weight descending. The sort is stable,
// so equal weights keep their arrival order and output is deterministic.
// Kinds missing from the weight table are silently ignored.
func (e *Engine) Score(traits []domain.Trait, matches []domain.BrandMatch) (float64, []domain.RiskFactor) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var factors []domain.RiskFactor
	total := 0

	for _, tr := range traits {
		weight, ok := e.weights[tr.Kind]
		if !ok {
			continue
		}
		total += weight
		factors = append(factors, domain.RiskFactor{
			Kind:        tr.Kind,
			Weight:      weight,
			Description: tr.Description,
		})
	}

	for _, m := range matches {
		weight, ok := e.weights[m.Kind]
		if !ok {
			continue
		}

		// Typosquatting contribution scales with lexical similarity to the
		// impersonated brand. Homoglyph matches stay binary: they are
		// high-confidence signals regardless of string distance.
		if m.Kind == domain.KindTyposquatting && m.Similarity != nil {
			weight = weight * *m.Similarity / 100
		}

		total += weight
		factors = append(factors, domain.RiskFactor{
			Kind:        m.Kind,
			Weight:      weight,
			Description: m.Description,
		})
	}

	score := float64(total)
	if score > MaxScore {
		score = MaxScore
	}
	if score < 0 {
		score = 0
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Weight > factors[j].Weight
	})

	return score, factors
}

// Weights returns a copy of the current weight table.
func (e *Engine) Weights() map[domain.FactorKind]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[domain.FactorKind]int, len(e.weights))
	for k, v := range e.weights {
		out[k] = v
	}
	return out
}

// UpdateWeights applies a bulk weight update. Only kinds already present in
// the table are modified; unknown or negative entries are skipped and
// returned so callers can report them. Applying the same update twice is
// idempotent. All changes in one call become visible atomically.
func (e *Engine) UpdateWeights(updates map[domain.FactorKind]int) []domain.FactorKind {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rejected []domain.FactorKind
	for kind, weight := range updates {
		if _, ok := e.weights[kind]; !ok || weight < 0 {
			rejected = append(rejected, kind)
			continue
		}
		e.weights[kind] = weight
	}

	// Deterministic order for logs and API responses.
	sort.Slice(rejected, func(i, j int) bool { return rejected[i] < rejected[j] })

	for _, kind := range rejected {
		slog.Warn("ignoring unknown risk factor in weight update", "kind", kind)
	}
	if len(updates) > 0 {
		slog.Info("risk weights adjusted",
			"updated", len(updates)-len(rejected),
			"rejected", len(rejected),
		)
	}

	return rejected
}

// LoadWeightsFile reads a JSON object of kind -> weight overrides.
func LoadWeightsFile(path string) (map[domain.FactorKind]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights file: %w", err)
	}

	var overrides map[domain.FactorKind]int
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	return overrides, nil
}
