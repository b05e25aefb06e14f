package latent

import (
	"fmt"
	"math"
)

// #region finite
// CheckFinite returns ErrInvalidNumericValue if v contains NaN or ±Inf.
func CheckFinite(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: element %d is %v", ErrInvalidNumericValue, i, x)
		}
	}
	return nil
}

// CheckFinite scans every element of the tensor.
func (t Tensor) CheckFinite() error {
	if !t.IsKV() {
		return CheckFinite(t.Vector)
	}
	return t.KV.each(func(kind string, l, h, p int, v []float32) error {
		if err := CheckFinite(v); err != nil {
			return fmt.Errorf("%s[%d][%d][%d]: %w", kind, l, h, p, err)
		}
		return nil
	})
}

// #endregion finite

// #region width
// CheckWidth verifies that every feature vector in the tensor has the given width.
// For a KV cache it also verifies that keys and values share a layer/head/position layout.
func (t Tensor) CheckWidth(width int) error {
	if err := t.checkShape(); err != nil {
		return err
	}
	if !t.IsKV() {
		if len(t.Vector) != width {
			return fmt.Errorf("%w: input width %d, expected %d", ErrDimensionMismatch, len(t.Vector), width)
		}
		return nil
	}
	if err := t.KV.checkLayout(); err != nil {
		return err
	}
	return t.KV.each(func(kind string, l, h, p int, v []float32) error {
		if len(v) != width {
			return fmt.Errorf("%w: %s[%d][%d][%d] width %d, expected %d",
				ErrDimensionMismatch, kind, l, h, p, len(v), width)
		}
		return nil
	})
}

func (t Tensor) checkShape() error {
	switch {
	case t.KV != nil && t.Vector != nil:
		return fmt.Errorf("%w: both vector and kv cache set", ErrMalformedTensor)
	case t.KV == nil && t.Vector == nil:
		return fmt.Errorf("%w: neither vector nor kv cache set", ErrMalformedTensor)
	}
	return nil
}

// #endregion width

// #region kv-helpers
// Layers returns the number of layers in the cache.
func (kv *KVCache) Layers() int {
	return len(kv.Keys)
}

// VectorCount returns the total number of key vectors across all layers, heads, and positions.
func (kv *KVCache) VectorCount() int {
	n := 0
	for _, layer := range kv.Keys {
		for _, head := range layer {
			n += len(head)
		}
	}
	return n
}

// checkLayout requires keys and values to agree on layer, head, and position counts.
func (kv *KVCache) checkLayout() error {
	if len(kv.Keys) != len(kv.Values) {
		return fmt.Errorf("%w: %d key layers vs %d value layers", ErrDimensionMismatch, len(kv.Keys), len(kv.Values))
	}
	for l := range kv.Keys {
		if len(kv.Keys[l]) != len(kv.Values[l]) {
			return fmt.Errorf("%w: layer %d has %d key heads vs %d value heads",
				ErrDimensionMismatch, l, len(kv.Keys[l]), len(kv.Values[l]))
		}
		for h := range kv.Keys[l] {
			if len(kv.Keys[l][h]) != len(kv.Values[l][h]) {
				return fmt.Errorf("%w: layer %d head %d has %d key positions vs %d value positions",
					ErrDimensionMismatch, l, h, len(kv.Keys[l][h]), len(kv.Values[l][h]))
			}
		}
	}
	return nil
}

// each visits keys then values in layer, head, position order.
func (kv *KVCache) each(fn func(kind string, l, h, p int, v []float32) error) error {
	for _, part := range []struct {
		kind string
		data [][][][]float32
	}{{"keys", kv.Keys}, {"values", kv.Values}} {
		for l, layer := range part.data {
			for h, head := range layer {
				for p, v := range head {
					if err := fn(part.kind, l, h, p, v); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// Map builds a new cache with the same layout by applying fn to every key and value vector.
func (kv *KVCache) Map(fn func(v []float32) ([]float32, error)) (*KVCache, error) {
	keys, err := mapPart(kv.Keys, fn)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	values, err := mapPart(kv.Values, fn)
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	return &KVCache{Keys: keys, Values: values, SequenceLength: kv.SequenceLength}, nil
}

func mapPart(part [][][][]float32, fn func(v []float32) ([]float32, error)) ([][][][]float32, error) {
	out := make([][][][]float32, len(part))
	for l, layer := range part {
		out[l] = make([][][]float32, len(layer))
		for h, head := range layer {
			out[l][h] = make([][]float32, len(head))
			for p, v := range head {
				mapped, err := fn(v)
				if err != nil {
					return nil, err
				}
				out[l][h][p] = mapped
			}
		}
	}
	return out, nil
}

// MeanKey returns the element-wise mean of every key vector, or nil for an empty cache.
func (kv *KVCache) MeanKey() []float32 {
	var sum []float64
	n := 0
	for _, layer := range kv.Keys {
		for _, head := range layer {
			for _, v := range head {
				if sum == nil {
					sum = make([]float64, len(v))
				}
				for i, x := range v {
					sum[i] += float64(x)
				}
				n++
			}
		}
	}
	if n == 0 {
		return nil
	}
	mean := make([]float32, len(sum))
	for i, s := range sum {
		mean[i] = float32(s / float64(n))
	}
	return mean
}

// Vectors lists every feature vector in the tensor: the flat vector alone, or
// all keys then values in layer, head, position order.
func (t Tensor) Vectors() [][]float32 {
	if !t.IsKV() {
		if t.Vector == nil {
			return nil
		}
		return [][]float32{t.Vector}
	}
	out := make([][]float32, 0, 2*t.KV.VectorCount())
	_ = t.KV.each(func(_ string, _, _, _ int, v []float32) error {
		out = append(out, v)
		return nil
	})
	return out
}

// #endregion kv-helpers
