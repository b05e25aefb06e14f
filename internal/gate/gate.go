package gate

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region gate
// Gate decides whether an aligned map may be listed, and at which tier.
type Gate struct {
	config Config
}

// NewGate creates a gate with the given configuration.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Config returns the gate thresholds.
func (g *Gate) Config() Config {
	return g.config
}

// Evaluate checks hard vetoes first, then scores soft signals. loss is the
// contrastive loss for the submission, or nil when none was computed.
func (g *Gate) Evaluate(report calibrate.QualityReport, m wmatrix.LinearMap, loss *float64) Decision {
	var vetoes []VetoSignal
	band := report.Band()

	// --- Hard veto pass ---

	// 1. Calibration score below the floor
	if report.CalibrationScore < g.config.MinScore {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoQuality,
			Reason: fmt.Sprintf("calibration score %.4f below minimum %.4f", report.CalibrationScore, g.config.MinScore),
		})
	}

	// 2. Reported epsilon must be a finite, non-negative number
	eps := m.AlignmentLoss
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps < 0 {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoInvalidLoss,
			Reason: fmt.Sprintf("alignment loss %v is not a valid epsilon", eps),
		})
	} else if g.config.MaxAlignmentLoss > 0 && eps > g.config.MaxAlignmentLoss {
		// 3. Epsilon cap
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoAlignmentLoss,
			Reason: fmt.Sprintf("alignment loss %.4f exceeds cap %.4f", eps, g.config.MaxAlignmentLoss),
		})
	}

	// 4. Contrastive separation
	if loss != nil && *loss >= g.config.MaxContrastiveLoss {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoSeparation,
			Reason: fmt.Sprintf("contrastive loss %.4f at or above %.4f", *loss, g.config.MaxContrastiveLoss),
		})
	}

	if len(vetoes) > 0 {
		return Decision{
			Action:      ActionReject,
			Tier:        TierNone,
			Band:        band,
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
			SoftScore:   0,
		}
	}

	// --- Soft scoring ---
	softScore := computeSoftScore(report, m)

	tier := TierStandard
	if report.CalibrationScore >= g.config.PremiumScore {
		tier = TierPremium
	}

	return Decision{
		Action:    ActionAccept,
		Tier:      tier,
		Band:      band,
		Reason:    fmt.Sprintf("passed gate: tier=%s soft_score=%.4f", tier, softScore),
		SoftScore: softScore,
	}
}

// #endregion gate

// #region helpers
// computeSoftScore produces a 0-1 composite: 0.6 calibration score, 0.2
// category coverage, 0.2 map orthogonality. Logged, never blocking.
func computeSoftScore(report calibrate.QualityReport, m wmatrix.LinearMap) float64 {
	ortho := m.OrthogonalityScore
	if math.IsNaN(ortho) {
		ortho = 0
	}
	return 0.6*clamp01(report.CalibrationScore) +
		0.2*clamp01(report.Coverage) +
		0.2*clamp01(ortho)
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}

// #endregion helpers
