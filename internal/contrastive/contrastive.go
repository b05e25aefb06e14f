package contrastive

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// Scorer computes InfoNCE losses against corpus anchors.
type Scorer struct {
	corpus  *anchors.Corpus
	backend compute.Backend
}

// New returns a scorer over c.
func New(c *anchors.Corpus, b compute.Backend) *Scorer {
	return &Scorer{corpus: c, backend: b}
}

// #region loss
// Loss returns -ln(exp(s⁺/τ) / Σ exp(s⁻/τ)) where s is cosine similarity to v.
// The denominator sums over negatives only, so a clean separation yields a
// negative loss. Negative ids without a stored vector are skipped; at least one
// must resolve.
func (s *Scorer) Loss(v []float32, positiveID int, negativeIDs []int) (float64, error) {
	if dim := s.corpus.Dimension(); dim != 0 && len(v) != dim {
		return 0, fmt.Errorf("%w: vector width %d, corpus dimension %d", latent.ErrDimensionMismatch, len(v), dim)
	}
	if err := latent.CheckFinite(v); err != nil {
		return 0, err
	}
	pos, err := s.corpus.Vector(positiveID)
	if err != nil {
		return 0, fmt.Errorf("positive: %w", err)
	}

	logits := make([]float64, 0, len(negativeIDs))
	for _, id := range negativeIDs {
		neg, err := s.corpus.Vector(id)
		if err != nil {
			continue
		}
		logits = append(logits, calibrate.CosineSimilarity(s.backend, v, neg)/Temperature)
	}
	if len(logits) == 0 {
		return 0, fmt.Errorf("%w: none of %d negative ids has a stored vector", anchors.ErrAnchorNotFound, len(negativeIDs))
	}

	posLogit := calibrate.CosineSimilarity(s.backend, v, pos) / Temperature
	return logSumExp(logits) - posLogit, nil
}

func logSumExp(xs []float64) float64 {
	hi := slices.Max(xs)
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - hi)
	}
	return hi + math.Log(sum)
}

// #endregion loss

// #region hard-negatives
// HardNegatives returns up to n ids of the anchors most similar to v that lie
// outside the positive anchor's category, most similar first, ties by id.
func (s *Scorer) HardNegatives(v []float32, positiveID, n int) ([]int, error) {
	posAnchor, ok := s.corpus.ByID(positiveID)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", anchors.ErrAnchorNotFound, positiveID)
	}
	if err := latent.CheckFinite(v); err != nil {
		return nil, err
	}

	type scored struct {
		id  int
		sim float64
	}
	var pool []scored
	for _, a := range s.corpus.Searchable() {
		if a.Category == posAnchor.Category {
			continue
		}
		if len(a.Vector) != len(v) {
			return nil, fmt.Errorf("%w: vector width %d, corpus dimension %d", latent.ErrDimensionMismatch, len(v), len(a.Vector))
		}
		pool = append(pool, scored{id: a.ID, sim: calibrate.CosineSimilarity(s.backend, v, a.Vector)})
	}
	slices.SortFunc(pool, func(x, y scored) int {
		if d := cmp.Compare(y.sim, x.sim); d != 0 {
			return d
		}
		return cmp.Compare(x.id, y.id)
	})
	if n < len(pool) {
		pool = pool[:max(n, 0)]
	}
	ids := make([]int, len(pool))
	for i, p := range pool {
		ids[i] = p.id
	}
	return ids, nil
}

// #endregion hard-negatives
