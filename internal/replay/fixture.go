package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/eval"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string            `json:"description"`
	Corpus      FixtureCorpus     `json:"corpus"`
	Map         wmatrix.LinearMap `json:"map"`
	Config      FixtureConfig     `json:"config"`
	Cases       []FixtureCase     `json:"cases"`
}

// FixtureCorpus describes a generated reference corpus. Fixtures replayed
// against a stored artifact ignore it.
type FixtureCorpus struct {
	Dimension int     `json:"dimension"`
	Spread    float64 `json:"spread"`
	Seed      uint64  `json:"seed"`
}

// FixtureCase is one submission. The input is Vector, or the stored vector of
// AnchorID when Vector is empty.
type FixtureCase struct {
	CaseID         string    `json:"case_id"`
	Vector         []float32 `json:"vector,omitempty"`
	AnchorID       *int      `json:"anchor_id,omitempty"`
	PositiveID     *int      `json:"positive_id,omitempty"`
	NegativeIDs    []int     `json:"negative_ids,omitempty"`
	ExpectedAction string    `json:"expected_action"`
	ExpectedBand   string    `json:"expected_band,omitempty"`
	ExpectedTier   string    `json:"expected_tier,omitempty"`
}

// FixtureConfig bundles gate and eval configs for a replay run.
type FixtureConfig struct {
	GateConfig FixtureGateConfig `json:"gate_config"`
	EvalConfig FixtureEvalConfig `json:"eval_config"`
}

// FixtureGateConfig mirrors gate.Config with JSON tags.
type FixtureGateConfig struct {
	MinScore           float64 `json:"min_score"`
	PremiumScore       float64 `json:"premium_score"`
	MaxAlignmentLoss   float64 `json:"max_alignment_loss"`
	MaxContrastiveLoss float64 `json:"max_contrastive_loss"`
}

// FixtureEvalConfig mirrors eval.Config with JSON tags.
type FixtureEvalConfig struct {
	MinFidelity      float64 `json:"min_fidelity"`
	MinOrthogonality float64 `json:"min_orthogonality"`
	MinNormRatio     float64 `json:"min_norm_ratio"`
	MaxNormRatio     float64 `json:"max_norm_ratio"`
	BaselineEpsilon  float64 `json:"baseline_epsilon"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Map.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s map: %w", path, err)
	}
	return &f, nil
}

// BuildCorpus generates the corpus the fixture was written against.
func (fc FixtureCorpus) BuildCorpus() (*anchors.Corpus, error) {
	return anchors.Generate(anchors.GeneratorConfig{
		Dimension: fc.Dimension,
		Spread:    fc.Spread,
		Seed:      fc.Seed,
	})
}

// ToCase resolves a FixtureCase to a domain Case against c.
func (fc *FixtureCase) ToCase(c *anchors.Corpus) (Case, error) {
	vec := fc.Vector
	if len(vec) == 0 {
		if fc.AnchorID == nil {
			return Case{}, fmt.Errorf("case %s: needs vector or anchor_id", fc.CaseID)
		}
		v, err := c.Vector(*fc.AnchorID)
		if err != nil {
			return Case{}, fmt.Errorf("case %s: %w", fc.CaseID, err)
		}
		vec = v
	}
	return Case{
		CaseID:      fc.CaseID,
		Vector:      vec,
		PositiveID:  fc.PositiveID,
		NegativeIDs: fc.NegativeIDs,
	}, nil
}

// ResolveCases converts every fixture case against c.
func (f *Fixture) ResolveCases(c *anchors.Corpus) ([]Case, error) {
	cases := make([]Case, len(f.Cases))
	for i := range f.Cases {
		cs, err := f.Cases[i].ToCase(c)
		if err != nil {
			return nil, err
		}
		cases[i] = cs
	}
	return cases, nil
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	return ReplayConfig{
		GateConfig: gate.Config{
			MinScore:           fc.GateConfig.MinScore,
			PremiumScore:       fc.GateConfig.PremiumScore,
			MaxAlignmentLoss:   fc.GateConfig.MaxAlignmentLoss,
			MaxContrastiveLoss: fc.GateConfig.MaxContrastiveLoss,
		},
		EvalConfig: eval.Config{
			MinFidelity:      fc.EvalConfig.MinFidelity,
			MinOrthogonality: fc.EvalConfig.MinOrthogonality,
			MinNormRatio:     fc.EvalConfig.MinNormRatio,
			MaxNormRatio:     fc.EvalConfig.MaxNormRatio,
			BaselineEpsilon:  fc.EvalConfig.BaselineEpsilon,
		},
	}
}

// #endregion fixture-loader
