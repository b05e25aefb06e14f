package anchors

import (
	"fmt"
	"slices"

	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// #region corpus
// Corpus is the immutable reference set. All methods are safe for concurrent use;
// returned anchors share vector storage with the corpus and must not be modified.
type Corpus struct {
	anchors    []Anchor
	byCategory map[Category][]int
	searchable []int
	dim        int
}

// New validates and copies anchors into a corpus. It requires exactly
// AnchorCount anchors with dense ids, every category present with an even
// split, and a single vector dimension among anchors that carry vectors.
func New(in []Anchor) (*Corpus, error) {
	if len(in) != AnchorCount {
		return nil, fmt.Errorf("corpus needs %d anchors, got %d", AnchorCount, len(in))
	}

	c := &Corpus{
		anchors:    make([]Anchor, AnchorCount),
		byCategory: make(map[Category][]int, CategoryCount),
	}
	seen := make([]bool, AnchorCount)
	for _, a := range in {
		if a.ID < 0 || a.ID >= AnchorCount {
			return nil, fmt.Errorf("anchor id %d out of range [0,%d)", a.ID, AnchorCount)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("duplicate anchor id %d", a.ID)
		}
		seen[a.ID] = true
		if !a.Category.Valid() {
			return nil, fmt.Errorf("anchor %d: unknown category %q", a.ID, a.Category)
		}
		if a.HasVector() {
			if err := latent.CheckFinite(a.Vector); err != nil {
				return nil, fmt.Errorf("anchor %d: %w", a.ID, err)
			}
			a.Vector = slices.Clone(a.Vector)
		} else {
			a.Vector = nil
		}
		c.anchors[a.ID] = a
	}

	for _, a := range c.anchors {
		c.byCategory[a.Category] = append(c.byCategory[a.Category], a.ID)
		if !a.HasVector() {
			continue
		}
		if c.dim == 0 {
			c.dim = len(a.Vector)
		} else if len(a.Vector) != c.dim {
			return nil, fmt.Errorf("%w: anchor %d has dimension %d, corpus has %d",
				latent.ErrDimensionMismatch, a.ID, len(a.Vector), c.dim)
		}
		c.searchable = append(c.searchable, a.ID)
	}

	if len(c.byCategory) != CategoryCount {
		return nil, fmt.Errorf("corpus spans %d categories, need %d", len(c.byCategory), CategoryCount)
	}
	lo, hi := AnchorCount, 0
	for _, ids := range c.byCategory {
		lo = min(lo, len(ids))
		hi = max(hi, len(ids))
	}
	if hi-lo > 1 {
		return nil, fmt.Errorf("uneven category split: smallest %d, largest %d", lo, hi)
	}
	return c, nil
}

// #endregion corpus

// #region accessors
// ByID returns the anchor with the given id.
func (c *Corpus) ByID(id int) (Anchor, bool) {
	if id < 0 || id >= len(c.anchors) {
		return Anchor{}, false
	}
	return c.anchors[id], true
}

// Vector returns the stored vector for id, or ErrAnchorNotFound.
func (c *Corpus) Vector(id int) ([]float32, error) {
	a, ok := c.ByID(id)
	if !ok || !a.HasVector() {
		return nil, fmt.Errorf("%w: id %d", ErrAnchorNotFound, id)
	}
	return a.Vector, nil
}

// ByCategory lists every anchor in the category in id order, with or without a vector.
func (c *Corpus) ByCategory(cat Category) []Anchor {
	ids := c.byCategory[cat]
	out := make([]Anchor, len(ids))
	for i, id := range ids {
		out[i] = c.anchors[id]
	}
	return out
}

// All returns every anchor in id order.
func (c *Corpus) All() []Anchor {
	return slices.Clone(c.anchors)
}

// Searchable returns the anchors that carry vectors, in id order.
func (c *Corpus) Searchable() []Anchor {
	out := make([]Anchor, len(c.searchable))
	for i, id := range c.searchable {
		out[i] = c.anchors[id]
	}
	return out
}

// Dimension is the shared vector width, or 0 if no anchor has a vector.
func (c *Corpus) Dimension() int {
	return c.dim
}

// WithVectors returns a new corpus with the given out-of-band embeddings
// attached. Anchors not present in vectors keep their current vector.
func (c *Corpus) WithVectors(vectors map[int][]float32) (*Corpus, error) {
	next := slices.Clone(c.anchors)
	for id, v := range vectors {
		if id < 0 || id >= len(next) {
			return nil, fmt.Errorf("%w: id %d", ErrAnchorNotFound, id)
		}
		next[id].Vector = v
	}
	return New(next)
}

// #endregion accessors
