package gate

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

func makeReport(score, coverage float64) calibrate.QualityReport {
	return calibrate.QualityReport{CalibrationScore: score, Coverage: coverage}
}

func makeMap(eps, ortho float64) wmatrix.LinearMap {
	return wmatrix.LinearMap{SourceModel: "a", TargetModel: "b", AlignmentLoss: eps, OrthogonalityScore: ortho}
}

func lossOf(x float64) *float64 { return &x }

func TestGateAcceptStandard(t *testing.T) {
	g := NewGate(DefaultConfig())

	decision := g.Evaluate(makeReport(0.88, 0.5), makeMap(0.05, 0.9), nil)

	if decision.Action != ActionAccept {
		t.Fatalf("expected accept, got %s: %s", decision.Action, decision.Reason)
	}
	if decision.Vetoed {
		t.Fatal("should not be vetoed")
	}
	if decision.Tier != TierStandard {
		t.Fatalf("expected standard tier, got %s", decision.Tier)
	}
	if decision.Band != calibrate.BandGood {
		t.Fatalf("expected good band, got %s", decision.Band)
	}
}

func TestGatePremiumTier(t *testing.T) {
	g := NewGate(DefaultConfig())

	decision := g.Evaluate(makeReport(0.97, 0.6), makeMap(0.01, 0.99), lossOf(0.2))

	if decision.Tier != TierPremium {
		t.Fatalf("expected premium tier, got %s", decision.Tier)
	}
	if decision.Band != calibrate.BandExcellent {
		t.Fatalf("expected excellent band, got %s", decision.Band)
	}
}

func TestGateRejectBelowMinimum(t *testing.T) {
	g := NewGate(DefaultConfig())

	decision := g.Evaluate(makeReport(0.69, 0.8), makeMap(0.01, 0.9), nil)

	if decision.Action != ActionReject {
		t.Fatalf("expected reject, got %s", decision.Action)
	}
	if !decision.Vetoed || len(decision.VetoSignals) == 0 {
		t.Fatal("expected veto signals")
	}
	if decision.VetoSignals[0].Type != VetoQuality {
		t.Fatalf("expected VetoQuality, got %s", decision.VetoSignals[0].Type)
	}
	if decision.Tier != TierNone {
		t.Fatalf("rejected maps get no tier, got %s", decision.Tier)
	}
	if decision.Band != calibrate.BandPoor {
		t.Fatalf("expected poor band, got %s", decision.Band)
	}
}

func TestGateRejectInvalidEpsilon(t *testing.T) {
	g := NewGate(DefaultConfig())
	for _, eps := range []float64{math.NaN(), math.Inf(1), -0.1} {
		decision := g.Evaluate(makeReport(0.9, 0.5), makeMap(eps, 0.9), nil)
		if decision.Action != ActionReject {
			t.Fatalf("epsilon %v: expected reject", eps)
		}
		if decision.VetoSignals[0].Type != VetoInvalidLoss {
			t.Fatalf("epsilon %v: expected VetoInvalidLoss, got %s", eps, decision.VetoSignals[0].Type)
		}
	}
}

func TestGateAlignmentLossCap(t *testing.T) {
	cfg := DefaultConfig()
	g := NewGate(cfg)
	if d := g.Evaluate(makeReport(0.9, 0.5), makeMap(5, 0.9), nil); d.Action != ActionAccept {
		t.Fatalf("cap disabled by default, got %s: %s", d.Action, d.Reason)
	}

	cfg.MaxAlignmentLoss = 0.5
	g = NewGate(cfg)
	d := g.Evaluate(makeReport(0.9, 0.5), makeMap(0.6, 0.9), nil)
	if d.Action != ActionReject || d.VetoSignals[0].Type != VetoAlignmentLoss {
		t.Fatalf("expected alignment loss veto, got %+v", d)
	}
}

func TestGateRejectPoorSeparation(t *testing.T) {
	g := NewGate(DefaultConfig())

	decision := g.Evaluate(makeReport(0.9, 0.5), makeMap(0.01, 0.9), lossOf(2.0))

	if decision.Action != ActionReject {
		t.Fatalf("expected reject on loss 2.0, got %s", decision.Action)
	}
	if decision.VetoSignals[0].Type != VetoSeparation {
		t.Fatalf("expected VetoSeparation, got %s", decision.VetoSignals[0].Type)
	}

	decision = g.Evaluate(makeReport(0.9, 0.5), makeMap(0.01, 0.9), lossOf(1.99))
	if decision.Action != ActionAccept {
		t.Fatalf("expected accept on loss 1.99, got %s", decision.Reason)
	}
}

func TestGateCollectsAllVetoes(t *testing.T) {
	g := NewGate(DefaultConfig())

	decision := g.Evaluate(makeReport(0.1, 0.1), makeMap(-1, 0), lossOf(9))

	if len(decision.VetoSignals) != 3 {
		t.Fatalf("expected 3 veto signals, got %d", len(decision.VetoSignals))
	}
	if decision.SoftScore != 0 {
		t.Fatal("vetoed decisions carry no soft score")
	}
}

func TestGateSoftScore(t *testing.T) {
	cases := []struct {
		name     string
		score    float64
		coverage float64
		ortho    float64
		want     float64
	}{
		{"weights", 0.9, 0.5, 1.0, 0.6*0.9 + 0.2*0.5 + 0.2},
		{"ortho clamped", 0.8, 0.25, 3.0, 0.6*0.8 + 0.2*0.25 + 0.2},
		{"nan ortho", 0.8, 0.25, math.NaN(), 0.6*0.8 + 0.2*0.25},
	}
	g := NewGate(DefaultConfig())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := g.Evaluate(makeReport(tc.score, tc.coverage), makeMap(0.01, tc.ortho), nil)
			if math.Abs(d.SoftScore-tc.want) > 1e-12 {
				t.Fatalf("soft score %v, want %v", d.SoftScore, tc.want)
			}
		})
	}
}
