package compute

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Accelerated routes kernels through gonum's float32 BLAS implementation.
type Accelerated struct{}

// probeAccelerated verifies the BLAS implementation before the backend is handed out.
// Replaced in tests to simulate a missing implementation.
var probeAccelerated = selfCheck

// NewAccelerated returns the accelerated backend, or ErrBackendUnavailable if the
// BLAS implementation is missing or fails its self-check.
func NewAccelerated() (Accelerated, error) {
	if err := probeAccelerated(); err != nil {
		return Accelerated{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return Accelerated{}, nil
}

func (Accelerated) Name() string { return string(KindAccelerated) }

func (Accelerated) Gemv(rows, cols int, w, x, y []float32) {
	if rows == 0 {
		return
	}
	if cols == 0 {
		for i := range y[:rows] {
			y[i] = 0
		}
		return
	}
	a := blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: w[:rows*cols]}
	blas32.Gemv(blas.NoTrans, 1, a,
		blas32.Vector{N: cols, Data: x, Inc: 1},
		0,
		blas32.Vector{N: rows, Data: y, Inc: 1})
}

func (Accelerated) Dot(a, b []float32) float64 {
	return float64(blas32.Dot(
		blas32.Vector{N: len(a), Data: a, Inc: 1},
		blas32.Vector{N: len(b), Data: b, Inc: 1}))
}

func (Accelerated) Norm(a []float32) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(blas32.Nrm2(blas32.Vector{N: len(a), Data: a, Inc: 1}))
}

// selfCheck runs a small product through BLAS and compares it with the sequential result.
func selfCheck() (err error) {
	if blas32.Implementation() == nil {
		return fmt.Errorf("no float32 BLAS implementation registered")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("blas self-check panicked: %v", r)
		}
	}()

	w := []float32{1, 2, 3, 4, 5, 6}
	x := []float32{0.5, -1, 2}
	got := make([]float32, 2)
	want := make([]float32, 2)
	Accelerated{}.Gemv(2, 3, w, x, got)
	Sequential{}.Gemv(2, 3, w, x, want)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			return fmt.Errorf("blas self-check mismatch at %d: %v != %v", i, got[i], want[i])
		}
	}
	return nil
}
