package bridge

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/batch"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/contrastive"
	"github.com/danielpatrickdp/neural-bridge/internal/eval"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region engine
// Engine is safe for concurrent use; it holds no mutable state after New.
type Engine struct {
	config     Config
	corpus     *anchors.Corpus
	backend    compute.Backend
	calibrator *calibrate.Calibrator
	scorer     *contrastive.Scorer
	harness    *eval.Harness
	runner     *batch.Runner
}

// New wires an engine over a loaded corpus and a selected backend.
func New(c *anchors.Corpus, b compute.Backend, cfg Config) *Engine {
	return &Engine{
		config:     cfg,
		corpus:     c,
		backend:    b,
		calibrator: calibrate.New(c, b),
		scorer:     contrastive.New(c, b),
		harness:    eval.NewHarness(cfg.Eval),
		runner:     batch.NewRunner(cfg.Batch),
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Corpus returns the reference corpus.
func (e *Engine) Corpus() *anchors.Corpus { return e.corpus }

// Backend returns the compute backend chosen at startup.
func (e *Engine) Backend() compute.Backend { return e.backend }

// #endregion engine

// #region align
// Align maps t through m and grades the result. Low quality is reported through
// PassesThreshold and Warnings, never as an error.
func (e *Engine) Align(t latent.Tensor, m wmatrix.LinearMap) (AlignmentResult, error) {
	op, err := wmatrix.Compile(m)
	if err != nil {
		return AlignmentResult{}, err
	}
	return e.align(op, m, t)
}

func (e *Engine) align(op *wmatrix.Operator, m wmatrix.LinearMap, t latent.Tensor) (AlignmentResult, error) {
	aligned, err := op.Align(e.backend, t)
	if err != nil {
		return AlignmentResult{}, err
	}

	res := AlignmentResult{Aligned: aligned, Warnings: []string{}}
	res.Eval = e.harness.Run(m, t, aligned)
	res.Warnings = append(res.Warnings, res.Eval.Failures...)

	qv := QualityVector(aligned)
	if qv == nil {
		res.Quality = calibrate.QualityReport{
			NearestMatches: []calibrate.AnchorMatch{},
			Diagnostics:    []string{"no vectors to calibrate"},
		}
		return res, nil
	}

	report, err := e.calibrator.Calibrate(qv)
	if err != nil {
		return AlignmentResult{}, fmt.Errorf("calibrate aligned tensor: %w", err)
	}
	res.Quality = report
	res.PassesThreshold = report.CalibrationScore >= e.config.MinScore
	if !res.PassesThreshold {
		res.Warnings = append(res.Warnings, fmt.Sprintf("calibration score %.4f below hard minimum %.2f", report.CalibrationScore, e.config.MinScore))
	}
	return res, nil
}

// QualityVector picks the vector graded for a tensor: the vector itself, or
// the mean key of a KV cache.
func QualityVector(t latent.Tensor) []float32 {
	if t.IsKV() {
		return t.KV.MeanKey()
	}
	return t.Vector
}

// #endregion align

// #region single
// Calibrate grades a vector against the corpus.
func (e *Engine) Calibrate(v []float32) (calibrate.QualityReport, error) {
	return e.calibrator.Calibrate(v)
}

// FindNearest returns the topK most similar anchors.
func (e *Engine) FindNearest(v []float32, topK int) ([]calibrate.AnchorMatch, error) {
	return e.calibrator.FindNearest(v, topK)
}

// Loss returns the InfoNCE loss of v against the given anchors.
func (e *Engine) Loss(v []float32, positiveID int, negativeIDs []int) (float64, error) {
	return e.scorer.Loss(v, positiveID, negativeIDs)
}

// HardNegatives returns the n closest anchors outside the positive's category.
func (e *Engine) HardNegatives(v []float32, positiveID, n int) ([]int, error) {
	return e.scorer.HardNegatives(v, positiveID, n)
}

// Normalize L2-normalizes v on the engine's backend.
func (e *Engine) Normalize(v []float32) []float32 {
	return compute.Normalize(e.backend, v)
}

// #endregion single

// #region batch
// AlignBatch aligns every tensor through one compiled map. Results are in input
// order and equal to calling Align on each tensor.
func (e *Engine) AlignBatch(ctx context.Context, ts []latent.Tensor, m wmatrix.LinearMap) ([]AlignmentResult, error) {
	op, err := wmatrix.Compile(m)
	if err != nil {
		return nil, err
	}
	return batch.Map(ctx, e.runner, ts, func(t latent.Tensor) (AlignmentResult, error) {
		return e.align(op, m, t)
	})
}

// CalibrateBatch grades every vector.
func (e *Engine) CalibrateBatch(ctx context.Context, vs [][]float32) ([]calibrate.QualityReport, error) {
	return batch.Map(ctx, e.runner, vs, e.calibrator.Calibrate)
}

// NormalizeBatch L2-normalizes every vector.
func (e *Engine) NormalizeBatch(ctx context.Context, vs [][]float32) ([][]float32, error) {
	return batch.Map(ctx, e.runner, vs, func(v []float32) ([]float32, error) {
		if err := latent.CheckFinite(v); err != nil {
			return nil, err
		}
		return e.Normalize(v), nil
	})
}

// LossBatch scores every request.
func (e *Engine) LossBatch(ctx context.Context, reqs []LossRequest) ([]float64, error) {
	return batch.Map(ctx, e.runner, reqs, func(r LossRequest) (float64, error) {
		return e.scorer.Loss(r.Vector, r.PositiveID, r.NegativeIDs)
	})
}

// #endregion batch
