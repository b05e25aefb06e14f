package latent

import "errors"

// #region errors
var (
	// ErrDimensionMismatch reports an input width that does not match the expected width.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidNumericValue reports a NaN or infinite element in an input tensor.
	ErrInvalidNumericValue = errors.New("invalid numeric value")
	// ErrMalformedTensor reports a tensor with both or neither of Vector and KV set.
	ErrMalformedTensor = errors.New("malformed tensor")
)

// #endregion errors

// #region kv-cache
// KVCache holds per-layer key/value tensors indexed [layer][head][position][feature].
type KVCache struct {
	Keys           [][][][]float32 `json:"keys"`
	Values         [][][][]float32 `json:"values"`
	SequenceLength int             `json:"sequence_length"`
}

// #endregion kv-cache

// #region tensor
// Tensor is either a flat vector or a KV cache. Exactly one field is set.
type Tensor struct {
	Vector []float32 `json:"vector,omitempty"`
	KV     *KVCache  `json:"kv,omitempty"`
}

// FromVector wraps a flat vector.
func FromVector(v []float32) Tensor {
	return Tensor{Vector: v}
}

// FromKV wraps a KV cache.
func FromKV(kv *KVCache) Tensor {
	return Tensor{KV: kv}
}

// IsKV reports whether the tensor carries a KV cache.
func (t Tensor) IsKV() bool {
	return t.KV != nil
}

// #endregion tensor
