package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/neural-bridge/internal/latent"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region eval-harness
// Harness runs lightweight validation on an alignment map and its output.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Config returns the harness thresholds.
func (h *Harness) Config() Config {
	return h.config
}

// Run checks the map's reported quality and the norm drift between input and
// aligned tensors. It never returns an error; failures are listed in the result.
func (h *Harness) Run(m wmatrix.LinearMap, input, aligned latent.Tensor) Result {
	var metrics []Metric
	var failures []string

	// 1. Fidelity from the map's training loss
	eps := m.AlignmentLoss
	fidelity := wmatrix.FidelityScore(eps)
	fidelityPass := fidelity >= h.config.MinFidelity
	metrics = append(metrics, Metric{Name: "fidelity_score", Value: fidelity, Pass: fidelityPass})
	if !fidelityPass {
		failures = append(failures, fmt.Sprintf("fidelity %.4f below %.4f (epsilon %.4f)", fidelity, h.config.MinFidelity, eps))
	}

	// 2. Boost over the unaligned baseline: informational
	boost := wmatrix.FidelityBoost(eps, h.config.BaselineEpsilon)
	metrics = append(metrics, Metric{Name: "fidelity_boost", Value: boost, Pass: true})

	// 3. Orthogonality of the learned map
	orthoPass := m.OrthogonalityScore >= h.config.MinOrthogonality
	metrics = append(metrics, Metric{Name: "orthogonality", Value: m.OrthogonalityScore, Pass: orthoPass})
	if !orthoPass {
		failures = append(failures, fmt.Sprintf("orthogonality %.4f below %.4f", m.OrthogonalityScore, h.config.MinOrthogonality))
	}

	// 4. Norm drift across the map
	if input.IsKV() && input.KV.VectorCount() == 0 {
		failures = append(failures, "empty kv cache: no key vectors to align")
	} else {
		inNorm := totalNorm(input.Vectors())
		outNorm := totalNorm(aligned.Vectors())
		if inNorm > 0 {
			ratio := outNorm / inNorm
			ratioPass := ratio >= h.config.MinNormRatio && ratio <= h.config.MaxNormRatio
			metrics = append(metrics, Metric{Name: "norm_ratio", Value: ratio, Pass: ratioPass})
			if !ratioPass {
				failures = append(failures, fmt.Sprintf("norm ratio %.4f outside [%.2f, %.2f]", ratio, h.config.MinNormRatio, h.config.MaxNormRatio))
			}
		}
	}

	reason := "all checks passed"
	if len(failures) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failures[0])
	} else if len(failures) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failures), failures[0])
	}

	return Result{
		Passed:   len(failures) == 0,
		Metrics:  metrics,
		Reason:   reason,
		Failures: failures,
	}
}

// #endregion eval-harness

// #region helpers
// totalNorm is the L2 norm of all vectors taken as one concatenated vector.
func totalNorm(vs [][]float32) float64 {
	var sum float64
	for _, v := range vs {
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
	}
	return math.Sqrt(sum)
}

// #endregion helpers
