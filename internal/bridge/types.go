// Package bridge is the alignment engine: it maps latent tensors between
// models, calibrates the result against the reference corpus, and exposes
// batch forms of every per-vector operation.
package bridge

import (
	"github.com/danielpatrickdp/neural-bridge/internal/batch"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/eval"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// #region config
// Config holds engine thresholds and batch sizing.
type Config struct {
	MinScore     float64      // PassesThreshold floor
	PremiumScore float64      // premium listing bar, reported to callers
	Batch        batch.Config // batch chunking and worker count
	Eval         eval.Config  // post-alignment checks
}

// DefaultConfig returns marketplace defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:     calibrate.HardMinimum,
		PremiumScore: calibrate.PremiumBar,
		Eval:         eval.DefaultConfig(),
	}
}

// #endregion config

// #region result
// AlignmentResult is the outcome of aligning one tensor.
type AlignmentResult struct {
	Aligned         latent.Tensor           `json:"aligned"`
	Quality         calibrate.QualityReport `json:"quality"`
	PassesThreshold bool                    `json:"passes_threshold"`
	Warnings        []string                `json:"warnings"`
	Eval            eval.Result             `json:"eval"`
}

// LossRequest is one contrastive scoring job.
type LossRequest struct {
	Vector      []float32 `json:"vector"`
	PositiveID  int       `json:"positive_id"`
	NegativeIDs []int     `json:"negative_ids"`
}

// #endregion result
