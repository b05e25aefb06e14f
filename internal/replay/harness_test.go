package replay

import (
	"math"
	"reflect"
	"testing"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

const dim = 32

// helper: tight corpus so anchor vectors calibrate near 1.
func tightCorpus(t *testing.T) *anchors.Corpus {
	t.Helper()
	c, err := anchors.Generate(anchors.GeneratorConfig{Dimension: dim, Spread: 0.1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return c
}

// helper: identity map with clean metadata.
func identity() wmatrix.LinearMap {
	w := make([][]float32, dim)
	for i := range w {
		w[i] = make([]float32, dim)
		w[i][i] = 1
	}
	return wmatrix.LinearMap{SourceModel: "a", TargetModel: "b", Weights: w, AlignmentLoss: 0.02, OrthogonalityScore: 0.99}
}

// helper: case whose input is the stored vector of an anchor.
func anchorCase(t *testing.T, c *anchors.Corpus, id int) Case {
	t.Helper()
	v, err := c.Vector(id)
	if err != nil {
		t.Fatalf("Vector(%d): %v", id, err)
	}
	return Case{CaseID: "anchor", Vector: v}
}

func intPtr(i int) *int { return &i }

// 1. Accept path: anchor vector through an identity map lists as premium.
func TestReplay_AcceptPath(t *testing.T) {
	c := tightCorpus(t)
	results := Replay(c, compute.NewSequential(), identity(), []Case{anchorCase(t, c, 42)}, DefaultReplayConfig())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Action != "accept" {
		t.Fatalf("expected accept, got %s: %s", r.Action, r.Reason)
	}
	if r.Decision == nil || r.Decision.Tier != gate.TierPremium {
		t.Fatalf("expected premium decision, got %+v", r.Decision)
	}
	if r.Loss != nil {
		t.Error("no positive given, loss should be nil")
	}
	if !r.Alignment.PassesThreshold {
		t.Error("expected alignment to pass threshold")
	}
}

// 2. Gate rejection: off-manifold vector falls below the hard minimum.
func TestReplay_GateRejection(t *testing.T) {
	c := tightCorpus(t)
	v := make([]float32, dim)
	v[0] = 1
	results := Replay(c, compute.NewSequential(), identity(), []Case{{CaseID: "basis", Vector: v}}, DefaultReplayConfig())

	r := results[0]
	if r.Action != "reject" {
		t.Fatalf("expected reject, got %s", r.Action)
	}
	if r.Decision.VetoSignals[0].Type != gate.VetoQuality {
		t.Fatalf("expected quality veto, got %s", r.Decision.VetoSignals[0].Type)
	}
	if r.Decision.Band != calibrate.BandPoor {
		t.Fatalf("expected poor band, got %s", r.Decision.Band)
	}
}

// 3. Contrastive veto: high calibration, wrong positive.
func TestReplay_ContrastiveVeto(t *testing.T) {
	c := tightCorpus(t)
	cs := anchorCase(t, c, 5*anchors.PerCategory)
	cs.PositiveID = intPtr(anchors.PerCategory)
	cs.NegativeIDs = []int{5 * anchors.PerCategory, 7 * anchors.PerCategory, 9 * anchors.PerCategory}

	r := Replay(c, compute.NewSequential(), identity(), []Case{cs}, DefaultReplayConfig())[0]

	if r.Action != "reject" {
		t.Fatalf("expected reject, got %s", r.Action)
	}
	if r.Loss == nil || *r.Loss < 2 {
		t.Fatalf("expected loss >= 2, got %v", r.Loss)
	}
	if r.Decision.VetoSignals[0].Type != gate.VetoSeparation {
		t.Fatalf("expected separation veto, got %s", r.Decision.VetoSignals[0].Type)
	}
}

// 4. Errors are recorded per case and do not stop the run.
func TestReplay_ErrorsRecorded(t *testing.T) {
	c := tightCorpus(t)
	bad := Case{CaseID: "nan", Vector: make([]float32, dim)}
	bad.Vector[3] = float32(math.NaN())
	missing := anchorCase(t, c, 1)
	missing.CaseID = "missing-positive"
	missing.PositiveID = intPtr(-1)
	missing.NegativeIDs = []int{600}

	results := Replay(c, compute.NewSequential(), identity(), []Case{bad, missing, anchorCase(t, c, 2)}, DefaultReplayConfig())

	if results[0].Action != "error" || results[1].Action != "error" {
		t.Fatalf("expected two errors, got %s, %s", results[0].Action, results[1].Action)
	}
	if results[1].Alignment.Quality.CalibrationScore == 0 {
		t.Error("loss failure should keep the alignment result")
	}
	if results[2].Action != "accept" {
		t.Fatalf("run should continue after errors, got %s", results[2].Action)
	}
}

// 5. Config passthrough: a raised floor rejects what defaults accept.
func TestReplay_ConfigPassthrough(t *testing.T) {
	c := tightCorpus(t)
	config := DefaultReplayConfig()
	config.GateConfig.MinScore = 1.01

	r := Replay(c, compute.NewSequential(), identity(), []Case{anchorCase(t, c, 42)}, config)[0]

	if r.Action != "reject" {
		t.Fatalf("expected reject with floor above 1, got %s", r.Action)
	}
	if r.Alignment.PassesThreshold {
		t.Error("engine floor should follow the gate floor")
	}
}

// 6. Summarize counts actions and averages scored cases.
func TestReplay_Summarize(t *testing.T) {
	results := []ReplayResult{
		{Action: "accept", Decision: &gate.Decision{Tier: gate.TierPremium}, Alignment: bridge.AlignmentResult{Quality: calibrate.QualityReport{CalibrationScore: 0.98}}},
		{Action: "accept", Decision: &gate.Decision{Tier: gate.TierStandard}, Alignment: bridge.AlignmentResult{Quality: calibrate.QualityReport{CalibrationScore: 0.8}}},
		{Action: "reject", Decision: &gate.Decision{Tier: gate.TierNone}, Alignment: bridge.AlignmentResult{Quality: calibrate.QualityReport{CalibrationScore: 0.2}}},
		{Action: "error"},
	}

	s := Summarize(results)

	if s.TotalCases != 4 || s.Accepted != 2 || s.Rejected != 1 || s.Errors != 1 || s.Premium != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if math.Abs(s.MeanScore-(0.98+0.8+0.2)/3) > 1e-12 {
		t.Fatalf("unexpected mean score %v", s.MeanScore)
	}
	if empty := Summarize(nil); empty.MeanScore != 0 || empty.TotalCases != 0 {
		t.Fatalf("empty summary should be zero, got %+v", empty)
	}
}

// 7. Determinism: same inputs, same results.
func TestReplay_Deterministic(t *testing.T) {
	c := tightCorpus(t)
	cases := []Case{anchorCase(t, c, 3), anchorCase(t, c, 700)}

	a := Replay(c, compute.NewSequential(), identity(), cases, DefaultReplayConfig())
	b := Replay(c, compute.NewSequential(), identity(), cases, DefaultReplayConfig())

	if !reflect.DeepEqual(a, b) {
		t.Fatal("replay is not deterministic")
	}
}
