package wmatrix

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// DefaultBaselineEpsilon is the unaligned reference loss used by FidelityBoost.
const DefaultBaselineEpsilon = 0.1

// Decode reads a JSON-encoded W-Matrix and validates it.
func Decode(r io.Reader) (LinearMap, error) {
	var m LinearMap
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return LinearMap{}, fmt.Errorf("decode w-matrix: %w", err)
	}
	if err := m.Validate(); err != nil {
		return LinearMap{}, fmt.Errorf("decode w-matrix: %w", err)
	}
	return m, nil
}

// FidelityScore maps an alignment loss to (0, 1]; lower loss scores higher.
// Negative or non-finite losses score 0.
func FidelityScore(epsilon float64) float64 {
	if epsilon < 0 || math.IsNaN(epsilon) || math.IsInf(epsilon, 0) {
		return 0
	}
	return 1 / (1 + epsilon)
}

// FidelityBoost estimates the percentage improvement over an unaligned baseline,
// clamped to [0, 100].
func FidelityBoost(epsilon, baseline float64) float64 {
	if baseline <= 0 || epsilon >= baseline || math.IsNaN(epsilon) {
		return 0
	}
	boost := (baseline - epsilon) / baseline * 100
	return math.Min(100, math.Max(0, boost))
}
