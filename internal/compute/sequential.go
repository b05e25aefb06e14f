package compute

import "math"

// Sequential is the portable backend. Sums accumulate in float64.
type Sequential struct{}

// NewSequential returns the sequential backend.
func NewSequential() Sequential {
	return Sequential{}
}

func (Sequential) Name() string { return string(KindSequential) }

func (Sequential) Gemv(rows, cols int, w, x, y []float32) {
	for i := 0; i < rows; i++ {
		row := w[i*cols : (i+1)*cols]
		var sum float64
		for j, v := range row {
			sum += float64(v) * float64(x[j])
		}
		y[i] = float32(sum)
	}
}

func (Sequential) Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func (Sequential) Norm(a []float32) float64 {
	var sum float64
	for _, x := range a {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
