package anchors

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

// #region helpers

func smallConfig() GeneratorConfig {
	return GeneratorConfig{Dimension: 32, Spread: 0.35}
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "anchors.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #endregion helpers

// #region corpus-tests

func TestGenerate_ShapeAndCategories(t *testing.T) {
	c, err := Generate(smallConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	all := c.All()
	if len(all) != AnchorCount {
		t.Fatalf("expected %d anchors, got %d", AnchorCount, len(all))
	}
	for i, a := range all {
		if a.ID != i {
			t.Fatalf("ids not dense: position %d has id %d", i, a.ID)
		}
	}
	cats := Categories()
	if len(cats) != CategoryCount {
		t.Fatalf("expected %d categories, got %d", CategoryCount, len(cats))
	}
	for _, cat := range cats {
		if n := len(c.ByCategory(cat)); n != PerCategory {
			t.Errorf("category %s has %d anchors, want %d", cat, n, PerCategory)
		}
	}
	if c.Dimension() != 32 {
		t.Errorf("dimension %d, want 32", c.Dimension())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate(smallConfig())
	b, _ := Generate(smallConfig())
	for id := 0; id < AnchorCount; id += 97 {
		x, _ := a.ByID(id)
		y, _ := b.ByID(id)
		if x.ReferenceText != y.ReferenceText || x.Category != y.Category || x.Weight != y.Weight {
			t.Fatalf("anchor %d metadata differs between runs", id)
		}
		for i := range x.Vector {
			if x.Vector[i] != y.Vector[i] {
				t.Fatalf("anchor %d vector differs at %d", id, i)
			}
		}
	}
}

func TestGenerate_UnitVectors(t *testing.T) {
	c, _ := Generate(smallConfig())
	for _, a := range c.Searchable() {
		var sum float64
		for _, x := range a.Vector {
			sum += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
			t.Fatalf("anchor %d norm %v, want 1", a.ID, math.Sqrt(sum))
		}
	}
}

func TestReferenceText(t *testing.T) {
	text, err := ReferenceText(Legal, 17)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Identify the liability issues that arise in distributed databases." {
		t.Errorf("unexpected text %q", text)
	}
	again, _ := ReferenceText(Legal, 17)
	if again != text {
		t.Error("reference text not stable")
	}
	if _, err := ReferenceText(Legal, PerCategory); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := ReferenceText(Category("poetry"), 0); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestWeightFor_CoreAboveTail(t *testing.T) {
	if WeightFor(0) != 1.0 || WeightFor(63) != 0.7 {
		t.Fatalf("unexpected weights core=%v tail=%v", WeightFor(0), WeightFor(63))
	}
	if WeightFor(15) <= WeightFor(16) {
		t.Fatal("expected core tier to outweigh next tier")
	}
}

func TestNew_Rejects(t *testing.T) {
	base, _ := Generate(GeneratorConfig{})
	all := base.All()

	if _, err := New(all[:AnchorCount-1]); err == nil {
		t.Error("expected error for short corpus")
	}

	dup := append([]Anchor(nil), all...)
	dup[5].ID = 4
	if _, err := New(dup); err == nil {
		t.Error("expected error for duplicate id")
	}

	badCat := append([]Anchor(nil), all...)
	badCat[0].Category = "astrology"
	if _, err := New(badCat); err == nil {
		t.Error("expected error for unknown category")
	}

	uneven := append([]Anchor(nil), all...)
	for i := 0; i < 10; i++ {
		uneven[i].Category = Business
	}
	if _, err := New(uneven); err == nil {
		t.Error("expected error for uneven category split")
	}

	mixed := append([]Anchor(nil), all...)
	mixed[0].Vector = make([]float32, 4)
	mixed[1].Vector = make([]float32, 5)
	if _, err := New(mixed); err == nil {
		t.Error("expected error for mixed dimensions")
	}
}

func TestVectorlessAnchorsEnumerableButNotSearchable(t *testing.T) {
	c, _ := Generate(smallConfig())
	all := c.All()
	all[3].Vector = nil
	c2, err := New(all)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(c2.Searchable()) != AnchorCount-1 {
		t.Fatalf("expected %d searchable, got %d", AnchorCount-1, len(c2.Searchable()))
	}
	found := false
	for _, a := range c2.ByCategory(all[3].Category) {
		if a.ID == 3 {
			found = true
		}
	}
	if !found {
		t.Fatal("vectorless anchor missing from category listing")
	}
	if _, err := c2.Vector(3); !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
}

func TestCorpusIsolatedFromInput(t *testing.T) {
	c, _ := Generate(smallConfig())
	all := c.All()
	all[0].Vector[0] = 42
	c2, _ := New(all)
	all[0].Vector[0] = -42
	a, _ := c2.ByID(0)
	if a.Vector[0] != 42 {
		t.Fatalf("corpus shares vector storage with caller input")
	}
}

func TestWithVectors(t *testing.T) {
	c, _ := Generate(GeneratorConfig{})
	if c.Dimension() != 0 || len(c.Searchable()) != 0 {
		t.Fatal("text-only corpus should have no searchable anchors")
	}
	c2, err := c.WithVectors(map[int][]float32{7: {1, 0}, 8: {0, 1}})
	if err != nil {
		t.Fatalf("WithVectors: %v", err)
	}
	if c2.Dimension() != 2 || len(c2.Searchable()) != 2 {
		t.Fatalf("unexpected dim=%d searchable=%d", c2.Dimension(), len(c2.Searchable()))
	}
	if _, err := c.WithVectors(map[int][]float32{AnchorCount: {1}}); !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
}

// #endregion corpus-tests

// #region store-tests

func TestStore_SaveAndLoad(t *testing.T) {
	s := tempStore(t)
	c, _ := Generate(smallConfig())
	all := c.All()
	all[10].Vector = nil
	c, _ = New(all)

	id, err := s.Save(c, "generator")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("expected version id")
	}

	loaded, gotID, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotID != id {
		t.Fatalf("loaded version %s, want %s", gotID, id)
	}
	if loaded.Dimension() != 32 || len(loaded.Searchable()) != AnchorCount-1 {
		t.Fatalf("unexpected loaded corpus dim=%d searchable=%d", loaded.Dimension(), len(loaded.Searchable()))
	}
	for _, a := range c.All() {
		b, _ := loaded.ByID(a.ID)
		if a.ReferenceText != b.ReferenceText || a.Weight != b.Weight || a.Category != b.Category {
			t.Fatalf("anchor %d metadata mismatch", a.ID)
		}
		if len(a.Vector) != len(b.Vector) {
			t.Fatalf("anchor %d vector length %d vs %d", a.ID, len(a.Vector), len(b.Vector))
		}
		for i := range a.Vector {
			if a.Vector[i] != b.Vector[i] {
				t.Fatalf("anchor %d vector mismatch at %d", a.ID, i)
			}
		}
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := tempStore(t)
	if _, _, err := s.Load(); err == nil {
		t.Fatal("expected error loading empty store")
	}
}

func TestStore_Versions(t *testing.T) {
	s := tempStore(t)
	c, _ := Generate(smallConfig())
	first, _ := s.Save(c, "generator")
	second, _ := s.Save(c, "import")

	versions, err := s.Versions(10)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionID != second || versions[1].VersionID != first {
		t.Fatalf("versions not newest-first: %+v", versions)
	}
	if versions[0].Source != "import" || versions[0].Searchable != AnchorCount || versions[0].Dimension != 32 {
		t.Fatalf("unexpected version info %+v", versions[0])
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	v := []float32{0, -1.5, float32(math.Pi), 1e-8}
	got := decodeVector(encodeVector(v))
	if len(got) != len(v) {
		t.Fatalf("length %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("element %d: %v != %v", i, got[i], v[i])
		}
	}
}

// #endregion store-tests

// #region provider-tests

func TestProvider_LoadsOnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	p := NewProvider(func() (*Corpus, error) {
		calls.Add(1)
		return Generate(smallConfig())
	})

	var wg sync.WaitGroup
	results := make([]*Corpus, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Corpus()
			if err != nil {
				t.Errorf("Corpus: %v", err)
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("loader ran %d times, want 1", calls.Load())
	}
	for i := range results {
		if results[i] != results[0] {
			t.Fatal("callers received different corpus instances")
		}
	}
}

func TestProvider_StickyError(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	p := NewProvider(func() (*Corpus, error) {
		calls++
		return nil, boom
	})
	for i := 0; i < 3; i++ {
		if _, err := p.Corpus(); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader ran %d times, want 1", calls)
	}
}

// #endregion provider-tests
