package wmatrix

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
)

// #region helpers

func randomMap(rows, cols int, seed uint64, withBias bool) LinearMap {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	w := make([][]float32, rows)
	for i := range w {
		w[i] = make([]float32, cols)
		for j := range w[i] {
			w[i][j] = float32(rng.NormFloat64() / math.Sqrt(float64(cols)))
		}
	}
	m := LinearMap{SourceModel: "src", TargetModel: "dst", Weights: w}
	if withBias {
		m.Bias = make([]float32, rows)
		for i := range m.Bias {
			m.Bias[i] = float32(rng.NormFloat64() * 0.01)
		}
	}
	return m
}

func unitVector(n int, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, 1))
	v := make([]float32, n)
	var sum float64
	for i := range v {
		x := rng.NormFloat64()
		v[i] = float32(x)
		sum += x * x
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func reference(m LinearMap, x []float32) []float64 {
	out := make([]float64, len(m.Weights))
	for i, row := range m.Weights {
		for j, w := range row {
			out[i] += float64(w) * float64(x[j])
		}
		if m.Bias != nil {
			out[i] += float64(m.Bias[i])
		}
	}
	return out
}

func backends(t *testing.T) []compute.Backend {
	t.Helper()
	acc, err := compute.NewAccelerated()
	if err != nil {
		t.Fatalf("NewAccelerated: %v", err)
	}
	return []compute.Backend{compute.NewSequential(), acc}
}

// #endregion helpers

// #region align-tests

func TestAlign_768x512MatchesMatrixProduct(t *testing.T) {
	m := randomMap(768, 512, 7, false)
	m.Bias = make([]float32, 768)
	x := unitVector(512, 11)
	want := reference(m, x)

	for _, b := range backends(t) {
		out, err := Align(b, latent.FromVector(x), m)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", b.Name(), err)
		}
		if len(out.Vector) != 768 {
			t.Fatalf("%s: output width %d, want 768", b.Name(), len(out.Vector))
		}
		for i := range want {
			if math.Abs(float64(out.Vector[i])-want[i]) > 1e-4 {
				t.Fatalf("%s: out[%d]=%v, want %v", b.Name(), i, out.Vector[i], want[i])
			}
		}
	}
}

func TestAlign_AppliesBias(t *testing.T) {
	m := LinearMap{
		Weights: [][]float32{{1, 0}, {0, 2}, {1, 1}},
		Bias:    []float32{0.5, -1, 0},
	}
	out, err := Align(compute.NewSequential(), latent.FromVector([]float32{3, 4}), m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{3.5, 7, 7}
	for i := range want {
		if out.Vector[i] != want[i] {
			t.Errorf("out[%d]=%v, want %v", i, out.Vector[i], want[i])
		}
	}
}

func TestAlign_OutputWidthEqualsTarget(t *testing.T) {
	for _, shape := range [][2]int{{4, 4}, {16, 8}, {3, 10}} {
		m := randomMap(shape[0], shape[1], uint64(shape[0]*shape[1]), true)
		out, err := Align(compute.NewSequential(), latent.FromVector(unitVector(shape[1], 3)), m)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", shape, err)
		}
		if len(out.Vector) != shape[0] {
			t.Errorf("%v: width %d, want %d", shape, len(out.Vector), shape[0])
		}
	}
}

func TestAlign_DimensionMismatch(t *testing.T) {
	m := randomMap(8, 4, 1, false)
	_, err := Align(compute.NewSequential(), latent.FromVector(make([]float32, 5)), m)
	if !errors.Is(err, latent.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAlign_RejectsNaN(t *testing.T) {
	m := randomMap(8, 4, 1, false)
	v := []float32{1, float32(math.NaN()), 0, 0}
	_, err := Align(compute.NewSequential(), latent.FromVector(v), m)
	if !errors.Is(err, latent.ErrInvalidNumericValue) {
		t.Fatalf("expected ErrInvalidNumericValue, got %v", err)
	}
}

func TestAlign_KVCache(t *testing.T) {
	m := randomMap(6, 4, 5, true)
	op, err := Compile(m)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b := compute.NewSequential()

	kv := &latent.KVCache{SequenceLength: 3}
	for l := 0; l < 2; l++ {
		var keys, values [][][]float32
		for h := 0; h < 2; h++ {
			var kh, vh [][]float32
			for p := 0; p < 3; p++ {
				kh = append(kh, unitVector(4, uint64(100*l+10*h+p)))
				vh = append(vh, unitVector(4, uint64(1000+100*l+10*h+p)))
			}
			keys = append(keys, kh)
			values = append(values, vh)
		}
		kv.Keys = append(kv.Keys, keys)
		kv.Values = append(kv.Values, values)
	}

	out, err := op.Align(b, latent.FromKV(kv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.IsKV() || out.KV.SequenceLength != 3 || out.KV.Layers() != 2 {
		t.Fatalf("layout not preserved: %+v", out.KV)
	}
	for l := range kv.Keys {
		for h := range kv.Keys[l] {
			for p := range kv.Keys[l][h] {
				single, _ := op.Apply(b, kv.Keys[l][h][p])
				got := out.KV.Keys[l][h][p]
				if len(got) != 6 {
					t.Fatalf("key width %d, want 6", len(got))
				}
				for i := range single {
					if got[i] != single[i] {
						t.Fatalf("key[%d][%d][%d] differs from single apply", l, h, p)
					}
				}
				if len(out.KV.Values[l][h][p]) != 6 {
					t.Fatalf("value width %d, want 6", len(out.KV.Values[l][h][p]))
				}
			}
		}
	}
}

func TestAlign_KVRejectsBeforeCompute(t *testing.T) {
	m := randomMap(6, 4, 5, false)
	kv := &latent.KVCache{
		Keys:           [][][][]float32{{{{1, 2, 3, 4}}}},
		Values:         [][][][]float32{{{{1, 2, 3, float32(math.Inf(1))}}}},
		SequenceLength: 1,
	}
	_, err := Align(compute.NewSequential(), latent.FromKV(kv), m)
	if !errors.Is(err, latent.ErrInvalidNumericValue) {
		t.Fatalf("expected ErrInvalidNumericValue, got %v", err)
	}
}

// #endregion align-tests

// #region validate-tests

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		m    LinearMap
		want error
	}{
		{"empty", LinearMap{}, latent.ErrDimensionMismatch},
		{"ragged", LinearMap{Weights: [][]float32{{1, 2}, {3}}}, latent.ErrDimensionMismatch},
		{"bias length", LinearMap{Weights: [][]float32{{1}, {2}}, Bias: []float32{1}}, latent.ErrDimensionMismatch},
		{"nan weight", LinearMap{Weights: [][]float32{{float32(math.NaN())}}}, latent.ErrInvalidNumericValue},
		{"ok", LinearMap{Weights: [][]float32{{1, 2}}, Bias: []float32{0}}, nil},
	}
	for _, tc := range cases {
		err := tc.m.Validate()
		if tc.want == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

// #endregion validate-tests

// #region fidelity-tests

func TestDecode(t *testing.T) {
	js := `{"source_model":"llama-3-8b","target_model":"gpt-4","weights":[[1,0],[0,1],[1,1]],
		"bias":[0,0,1],"alignment_loss":0.02,"orthogonality_score":0.91,"training_anchor_count":1024}`
	m, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.SourceDim() != 2 || m.TargetDim() != 3 {
		t.Fatalf("unexpected shape %dx%d", m.TargetDim(), m.SourceDim())
	}
	if m.TrainingAnchorCount != 1024 || m.AlignmentLoss != 0.02 {
		t.Fatalf("metadata not decoded: %+v", m)
	}

	if _, err := Decode(strings.NewReader(`{"weights":[[1,2],[3]]}`)); !errors.Is(err, latent.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch for ragged map, got %v", err)
	}
}

func TestFidelityScore(t *testing.T) {
	if got := FidelityScore(0); got != 1 {
		t.Errorf("FidelityScore(0)=%v, want 1", got)
	}
	if got := FidelityScore(1); got != 0.5 {
		t.Errorf("FidelityScore(1)=%v, want 0.5", got)
	}
	if got := FidelityScore(math.NaN()); got != 0 {
		t.Errorf("FidelityScore(NaN)=%v, want 0", got)
	}
}

func TestFidelityBoost(t *testing.T) {
	if got := FidelityBoost(0.05, DefaultBaselineEpsilon); math.Abs(got-50) > 1e-9 {
		t.Errorf("FidelityBoost(0.05)=%v, want 50", got)
	}
	if got := FidelityBoost(0.2, DefaultBaselineEpsilon); got != 0 {
		t.Errorf("FidelityBoost above baseline=%v, want 0", got)
	}
	if got := FidelityBoost(math.NaN(), DefaultBaselineEpsilon); got != 0 {
		t.Errorf("FidelityBoost(NaN)=%v, want 0", got)
	}
}

// #endregion fidelity-tests
