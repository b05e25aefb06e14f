package replay

import (
	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/eval"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region types
// Case is a single recorded submission for replay.
type Case struct {
	CaseID      string
	Vector      []float32
	PositiveID  *int
	NegativeIDs []int
}

// ReplayConfig bundles gate and eval configs for a replay run.
type ReplayConfig struct {
	GateConfig gate.Config
	EvalConfig eval.Config
}

// DefaultReplayConfig returns the marketplace defaults for both stages.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig: gate.DefaultConfig(),
		EvalConfig: eval.DefaultConfig(),
	}
}

// ReplayResult captures the outcome of replaying one case through the pipeline.
type ReplayResult struct {
	CaseID string
	Action string // "accept" | "reject" | "error"
	Reason string

	// Align stage (zero if the case errored)
	Alignment bridge.AlignmentResult

	// Contrastive stage (nil if no positive was given or scoring failed)
	Loss *float64

	// Gate stage (nil if the case errored)
	Decision *gate.Decision
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCases int
	Accepted   int
	Rejected   int
	Premium    int
	Errors     int
	MeanScore  float64
}

// #endregion types

// #region replay
// Replay runs every case through align → contrastive loss → gate. Per-case
// errors are recorded as "error" results rather than stopping the run.
func Replay(c *anchors.Corpus, b compute.Backend, m wmatrix.LinearMap, cases []Case, config ReplayConfig) []ReplayResult {
	engine := bridge.New(c, b, bridge.Config{
		MinScore:     config.GateConfig.MinScore,
		PremiumScore: config.GateConfig.PremiumScore,
		Eval:         config.EvalConfig,
	})
	gateInst := gate.NewGate(config.GateConfig)
	results := make([]ReplayResult, 0, len(cases))

	for _, cs := range cases {
		// 1. Align and calibrate
		res, err := engine.Align(latent.FromVector(cs.Vector), m)
		if err != nil {
			results = append(results, ReplayResult{CaseID: cs.CaseID, Action: "error", Reason: err.Error()})
			continue
		}

		// 2. Contrastive loss against the declared positive
		var loss *float64
		if cs.PositiveID != nil {
			l, err := engine.Loss(res.Aligned.Vector, *cs.PositiveID, cs.NegativeIDs)
			if err != nil {
				results = append(results, ReplayResult{CaseID: cs.CaseID, Action: "error", Reason: err.Error(), Alignment: res})
				continue
			}
			loss = &l
		}

		// 3. Gate
		decision := gateInst.Evaluate(res.Quality, m, loss)
		results = append(results, ReplayResult{
			CaseID:    cs.CaseID,
			Action:    string(decision.Action),
			Reason:    decision.Reason,
			Alignment: res,
			Loss:      loss,
			Decision:  &decision,
		})
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalCases: len(results)}
	var scored int
	for _, r := range results {
		switch r.Action {
		case string(gate.ActionAccept):
			s.Accepted++
			if r.Decision != nil && r.Decision.Tier == gate.TierPremium {
				s.Premium++
			}
		case string(gate.ActionReject):
			s.Rejected++
		default:
			s.Errors++
			continue
		}
		s.MeanScore += r.Alignment.Quality.CalibrationScore
		scored++
	}
	if scored > 0 {
		s.MeanScore /= float64(scored)
	}
	return s
}

// #endregion replay
