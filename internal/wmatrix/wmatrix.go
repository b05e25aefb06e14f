package wmatrix

import (
	"fmt"

	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// #region validate
// Validate checks that weights are rectangular, bias (if any) has one entry per
// row, and every coefficient is finite.
func (m LinearMap) Validate() error {
	rows, cols := m.TargetDim(), m.SourceDim()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: empty weight matrix (%dx%d)", latent.ErrDimensionMismatch, rows, cols)
	}
	for i, row := range m.Weights {
		if len(row) != cols {
			return fmt.Errorf("%w: weight row %d has %d columns, expected %d", latent.ErrDimensionMismatch, i, len(row), cols)
		}
		if err := latent.CheckFinite(row); err != nil {
			return fmt.Errorf("weight row %d: %w", i, err)
		}
	}
	if m.Bias != nil {
		if len(m.Bias) != rows {
			return fmt.Errorf("%w: bias length %d, expected %d", latent.ErrDimensionMismatch, len(m.Bias), rows)
		}
		if err := latent.CheckFinite(m.Bias); err != nil {
			return fmt.Errorf("bias: %w", err)
		}
	}
	return nil
}

// #endregion validate

// #region operator
// Operator is a validated LinearMap with its weights flattened row-major. It is
// built per operation and safe for concurrent use.
type Operator struct {
	rows, cols int
	weights    []float32
	bias       []float32
}

// Compile validates m and prepares it for repeated application.
func Compile(m LinearMap) (*Operator, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid w-matrix %s->%s: %w", m.SourceModel, m.TargetModel, err)
	}
	rows, cols := m.TargetDim(), m.SourceDim()
	flat := make([]float32, 0, rows*cols)
	for _, row := range m.Weights {
		flat = append(flat, row...)
	}
	var bias []float32
	if m.Bias != nil {
		bias = append([]float32(nil), m.Bias...)
	}
	return &Operator{rows: rows, cols: cols, weights: flat, bias: bias}, nil
}

// SourceDim is the expected input width.
func (op *Operator) SourceDim() int { return op.cols }

// TargetDim is the output width.
func (op *Operator) TargetDim() int { return op.rows }

// Apply maps a single vector. Input is rejected before any arithmetic if it has
// the wrong width or contains NaN/Inf.
func (op *Operator) Apply(b compute.Backend, v []float32) ([]float32, error) {
	if len(v) != op.cols {
		return nil, fmt.Errorf("%w: input width %d, map expects %d", latent.ErrDimensionMismatch, len(v), op.cols)
	}
	if err := latent.CheckFinite(v); err != nil {
		return nil, err
	}
	return op.apply(b, v), nil
}

// Align maps a vector or every key and value vector of a KV cache. The whole
// tensor is validated before any vector is transformed.
func (op *Operator) Align(b compute.Backend, t latent.Tensor) (latent.Tensor, error) {
	if err := t.CheckWidth(op.cols); err != nil {
		return latent.Tensor{}, err
	}
	if err := t.CheckFinite(); err != nil {
		return latent.Tensor{}, err
	}
	if !t.IsKV() {
		return latent.FromVector(op.apply(b, t.Vector)), nil
	}
	kv, err := t.KV.Map(func(v []float32) ([]float32, error) {
		return op.apply(b, v), nil
	})
	if err != nil {
		return latent.Tensor{}, err
	}
	return latent.FromKV(kv), nil
}

func (op *Operator) apply(b compute.Backend, v []float32) []float32 {
	out := make([]float32, op.rows)
	b.Gemv(op.rows, op.cols, op.weights, v, out)
	for i, x := range op.bias {
		out[i] += x
	}
	return out
}

// #endregion operator

// #region align
// Align compiles m and applies it to t.
func Align(b compute.Backend, t latent.Tensor, m LinearMap) (latent.Tensor, error) {
	op, err := Compile(m)
	if err != nil {
		return latent.Tensor{}, err
	}
	return op.Align(b, t)
}

// #endregion align
