package calibrate

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// #region similarity
// CosineSimilarity returns dot(x,y)/(‖x‖·‖y‖) clamped to [-1, 1], or 0 when
// either norm is zero.
func CosineSimilarity(b compute.Backend, x, y []float32) float64 {
	return cosine(b.Dot(x, y), b.Norm(x), b.Norm(y))
}

// cosine absorbs float32 rounding that pushes |dot| past nx·ny.
func cosine(dot, nx, ny float64) float64 {
	if nx == 0 || ny == 0 {
		return 0
	}
	return max(-1, min(1, dot/(nx*ny)))
}

// #endregion similarity

// #region calibrator
// Calibrator scores vectors against a reference corpus. Anchor norms are
// computed once at construction; the calibrator is read-only afterwards.
type Calibrator struct {
	corpus  *anchors.Corpus
	backend compute.Backend
	pool    []anchors.Anchor
	norms   []float64
}

// New builds a calibrator over the searchable anchors of c.
func New(c *anchors.Corpus, b compute.Backend) *Calibrator {
	pool := c.Searchable()
	norms := make([]float64, len(pool))
	for i, a := range pool {
		norms[i] = b.Norm(a.Vector)
	}
	return &Calibrator{corpus: c, backend: b, pool: pool, norms: norms}
}

// Corpus returns the reference corpus.
func (c *Calibrator) Corpus() *anchors.Corpus {
	return c.corpus
}

// Backend returns the compute backend.
func (c *Calibrator) Backend() compute.Backend {
	return c.backend
}

// #endregion calibrator

// #region find-nearest
// FindNearest returns up to topK anchors ordered by descending similarity, ties
// broken by ascending anchor id.
func (c *Calibrator) FindNearest(v []float32, topK int) ([]AnchorMatch, error) {
	if err := c.check(v); err != nil {
		return nil, err
	}
	if topK <= 0 || len(c.pool) == 0 {
		return []AnchorMatch{}, nil
	}

	nv := c.backend.Norm(v)
	matches := make([]AnchorMatch, len(c.pool))
	for i, a := range c.pool {
		var sim float64
		if nv != 0 && c.norms[i] != 0 {
			sim = cosine(c.backend.Dot(v, a.Vector), nv, c.norms[i])
		}
		matches[i] = AnchorMatch{
			AnchorID:      a.ID,
			Similarity:    sim,
			Category:      string(a.Category),
			ReferenceText: a.ReferenceText,
		}
	}
	slices.SortFunc(matches, func(x, y AnchorMatch) int {
		if d := cmp.Compare(y.Similarity, x.Similarity); d != 0 {
			return d
		}
		return cmp.Compare(x.AnchorID, y.AnchorID)
	})
	if topK < len(matches) {
		matches = matches[:topK]
	}
	return matches, nil
}

func (c *Calibrator) check(v []float32) error {
	if dim := c.corpus.Dimension(); dim != 0 && len(v) != dim {
		return fmt.Errorf("%w: vector width %d, corpus dimension %d", latent.ErrDimensionMismatch, len(v), dim)
	}
	return latent.CheckFinite(v)
}

// #endregion find-nearest

// #region calibrate
// Calibrate scores v against its DefaultTopK nearest anchors. The score is the
// unweighted mean similarity clamped to [0,1]; coverage is the fraction of
// categories present among those neighbors.
func (c *Calibrator) Calibrate(v []float32) (QualityReport, error) {
	matches, err := c.FindNearest(v, DefaultTopK)
	if err != nil {
		return QualityReport{}, err
	}

	var sum float64
	cats := make(map[string]struct{}, anchors.CategoryCount)
	for _, m := range matches {
		sum += m.Similarity
		cats[m.Category] = struct{}{}
	}
	var score float64
	if len(matches) > 0 {
		score = clamp01(sum / float64(len(matches)))
	}
	coverage := float64(len(cats)) / anchors.CategoryCount

	var top float64
	if len(matches) > 0 {
		top = matches[0].Similarity
	}

	return QualityReport{
		CalibrationScore: score,
		Coverage:         coverage,
		NearestMatches:   matches,
		Diagnostics:      diagnose(score, coverage, top),
	}, nil
}

func diagnose(score, coverage, top float64) []string {
	diags := []string{}
	if score < poorScoreThreshold {
		diags = append(diags, fmt.Sprintf("calibration score %.2f: vector is poorly aligned with the reference space", score))
	}
	if coverage < lowCoverageThreshold {
		diags = append(diags, fmt.Sprintf("coverage %.2f: vector is too specialized, few semantic categories matched", coverage))
	}
	if top < strongMatchThreshold {
		diags = append(diags, fmt.Sprintf("top similarity %.2f: no strong anchor match", top))
	}
	if score >= excellentScoreThreshold && coverage >= excellentCoverage {
		diags = append(diags, "high score with broad coverage: excellent alignment")
	}
	return diags
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}

// #endregion calibrate
