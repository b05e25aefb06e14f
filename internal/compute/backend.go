// Package compute provides the numeric backends used by alignment, calibration,
// and contrastive scoring.
//
// Two variants exist: Sequential, plain Go loops that are always available, and
// Accelerated, which routes through gonum's BLAS kernels (SIMD assembly on amd64
// and arm64). A backend is chosen once at startup with Select; callers hold the
// returned Backend for the life of the process.
package compute

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrBackendUnavailable reports that the accelerated backend could not initialize.
var ErrBackendUnavailable = errors.New("compute backend unavailable")

// #region backend
// Backend is the set of kernels the engine needs. Implementations must be safe
// for concurrent use and must not retain their arguments.
type Backend interface {
	Name() string
	// Gemv computes y = W·x where w is rows×cols, row-major.
	Gemv(rows, cols int, w, x, y []float32)
	Dot(a, b []float32) float64
	Norm(a []float32) float64
}

// #endregion backend

// #region kind
// Kind names a backend variant.
type Kind string

const (
	KindSequential  Kind = "sequential"
	KindAccelerated Kind = "accelerated"
)

// ParseKind accepts the case-insensitive backend name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSequential:
		return KindSequential, nil
	case KindAccelerated, "":
		return KindAccelerated, nil
	}
	return "", fmt.Errorf("unknown compute backend %q", s)
}

// #endregion kind

// #region normalize
// Normalize returns a unit-length copy of v. The zero vector is returned as zeros.
func Normalize(b Backend, v []float32) []float32 {
	out := make([]float32, len(v))
	n := b.Norm(v)
	if n == 0 || math.IsNaN(n) {
		return out
	}
	inv := 1 / n
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// #endregion normalize
