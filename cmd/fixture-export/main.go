package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/eval"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/logging"
	"github.com/danielpatrickdp/neural-bridge/internal/replay"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region main

type options struct {
	dim         int
	spread      float64
	seed        uint64
	perCategory int
	negatives   int
	probes      int
	epsilon     float64
	ortho       float64
	dbPath      string
	outPath     string
}

func main() {
	var o options
	flag.IntVar(&o.dim, "dim", 64, "vector width of the generated corpus")
	flag.Float64Var(&o.spread, "spread", 0.1, "noise around each category centroid")
	flag.Uint64Var(&o.seed, "seed", 0, "generator salt")
	flag.IntVar(&o.perCategory, "per-category", 1, "anchor cases per category")
	flag.IntVar(&o.negatives, "negatives", 5, "hard negatives per anchor case (0 = no contrastive stage)")
	flag.IntVar(&o.probes, "probes", 2, "off-manifold basis-vector cases")
	flag.Float64Var(&o.epsilon, "epsilon", 0.05, "alignment loss recorded on the identity map")
	flag.Float64Var(&o.ortho, "ortho", 0.95, "orthogonality score recorded on the identity map")
	flag.StringVar(&o.dbPath, "db", "", "optional neural_bridge.db; gate thresholds are taken from its latest verdict")
	flag.StringVar(&o.outPath, "out", "", "output fixture JSON path")
	flag.Parse()

	if o.outPath == "" || o.dim <= 0 || o.perCategory < 0 || o.perCategory > anchors.PerCategory {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --out path/to/fixture.json [--dim N] [--per-category N] [--negatives N] [--probes N] [--db path]")
		os.Exit(2)
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region build

func run(o options) error {
	fc := replay.FixtureCorpus{Dimension: o.dim, Spread: o.spread, Seed: o.seed}
	corpus, err := fc.BuildCorpus()
	if err != nil {
		return fmt.Errorf("generate corpus: %w", err)
	}

	gc := gate.DefaultConfig()
	if o.dbPath != "" {
		if gc, err = latestThresholds(o.dbPath); err != nil {
			return err
		}
	}

	fixture := replay.Fixture{
		Description: fmt.Sprintf("Generated regression fixture: dim=%d spread=%.2f seed=%d", o.dim, o.spread, o.seed),
		Corpus:      fc,
		Map:         identityMap(o.dim, o.epsilon, o.ortho),
		Config:      fixtureConfig(gc, eval.DefaultConfig()),
	}
	if fixture.Cases, err = buildCases(corpus, o); err != nil {
		return err
	}

	// Expected outcomes are whatever the current pipeline decides
	cases, err := fixture.ResolveCases(corpus)
	if err != nil {
		return err
	}
	results := replay.Replay(corpus, compute.NewSequential(), fixture.Map, cases, fixture.Config.ToReplayConfig())
	for i, r := range results {
		fixture.Cases[i].ExpectedAction = r.Action
		if r.Decision != nil {
			fixture.Cases[i].ExpectedBand = string(r.Decision.Band)
			fixture.Cases[i].ExpectedTier = string(r.Decision.Tier)
		}
	}

	return writeFixture(fixture, o.outPath)
}

func buildCases(corpus *anchors.Corpus, o options) ([]replay.FixtureCase, error) {
	engine := bridge.New(corpus, compute.NewSequential(), bridge.DefaultConfig())
	var out []replay.FixtureCase

	step := 1
	if o.perCategory > 0 {
		step = anchors.PerCategory / o.perCategory
	}
	for k, cat := range anchors.Categories() {
		for i := 0; i < o.perCategory; i++ {
			id := k*anchors.PerCategory + i*step
			fc := replay.FixtureCase{
				CaseID:   fmt.Sprintf("%s-%d", cat, id),
				AnchorID: intPtr(id),
			}
			if o.negatives > 0 {
				v, err := corpus.Vector(id)
				if err != nil {
					return nil, err
				}
				negs, err := engine.HardNegatives(v, id, o.negatives)
				if err != nil {
					return nil, fmt.Errorf("hard negatives for %d: %w", id, err)
				}
				fc.PositiveID = intPtr(id)
				fc.NegativeIDs = negs
			}
			out = append(out, fc)
		}
	}

	for j := 0; j < o.probes && j < o.dim; j++ {
		v := make([]float32, o.dim)
		v[j] = 1
		out = append(out, replay.FixtureCase{CaseID: fmt.Sprintf("off-manifold-e%d", j), Vector: v})
	}
	return out, nil
}

// latestThresholds reads the gate config recorded with the newest verdict.
func latestThresholds(dbPath string) (gate.Config, error) {
	store, err := anchors.NewStore(dbPath)
	if err != nil {
		return gate.Config{}, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if err := logging.Migrate(store.DB()); err != nil {
		return gate.Config{}, err
	}
	entries, err := logging.Recent(store.DB(), 1)
	if err != nil {
		return gate.Config{}, err
	}
	if len(entries) == 0 {
		return gate.Config{}, fmt.Errorf("no verdicts in %s", dbPath)
	}
	var rec logging.VerdictRecord
	if err := json.Unmarshal([]byte(entries[0].RecordJSON), &rec); err != nil {
		return gate.Config{}, fmt.Errorf("parse verdict %s: %w", entries[0].VerdictID, err)
	}
	th := rec.Thresholds
	fmt.Printf("Using thresholds from verdict %s\n", entries[0].VerdictID)
	return gate.Config{
		MinScore:           th.MinScore,
		PremiumScore:       th.PremiumScore,
		MaxAlignmentLoss:   th.MaxAlignmentLoss,
		MaxContrastiveLoss: th.MaxContrastiveLoss,
	}, nil
}

// #endregion build

// #region output

func identityMap(dim int, epsilon, ortho float64) wmatrix.LinearMap {
	w := make([][]float32, dim)
	for i := range w {
		w[i] = make([]float32, dim)
		w[i][i] = 1
	}
	return wmatrix.LinearMap{
		SourceModel:        "identity",
		TargetModel:        "identity",
		Weights:            w,
		AlignmentLoss:      epsilon,
		OrthogonalityScore: ortho,
	}
}

func fixtureConfig(gc gate.Config, ec eval.Config) replay.FixtureConfig {
	return replay.FixtureConfig{
		GateConfig: replay.FixtureGateConfig{
			MinScore:           gc.MinScore,
			PremiumScore:       gc.PremiumScore,
			MaxAlignmentLoss:   gc.MaxAlignmentLoss,
			MaxContrastiveLoss: gc.MaxContrastiveLoss,
		},
		EvalConfig: replay.FixtureEvalConfig{
			MinFidelity:      ec.MinFidelity,
			MinOrthogonality: ec.MinOrthogonality,
			MinNormRatio:     ec.MinNormRatio,
			MaxNormRatio:     ec.MaxNormRatio,
			BaselineEpsilon:  ec.BaselineEpsilon,
		},
	}
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d cases)\n", outPath, len(data), len(fixture.Cases))
	return nil
}

func intPtr(i int) *int { return &i }

// #endregion output
