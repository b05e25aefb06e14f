package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
)

// #region main
func main() {
	dbPath := flag.String("db", "neural_bridge.db", "path to the corpus artifact database")
	dim := flag.Int("dim", 768, "vector width for generated embeddings (0 = text only)")
	spread := flag.Float64("spread", 0.35, "noise around each category centroid")
	seed := flag.Uint64("seed", 0, "generator salt; same seed, same corpus")
	vectorsPath := flag.String("vectors", "", "optional JSON object of anchor id -> embedding to import")
	flag.Parse()

	fmt.Println("=== Corpus Build Tool ===")
	fmt.Printf("  DB: %s | D: %d | Spread: %.2f | Seed: %d\n", *dbPath, *dim, *spread, *seed)

	// Generate the reference corpus
	corpus, err := anchors.Generate(anchors.GeneratorConfig{Dimension: *dim, Spread: *spread, Seed: *seed})
	if err != nil {
		log.Fatalf("generate corpus: %v", err)
	}
	source := fmt.Sprintf("generated dim=%d spread=%.2f seed=%d", *dim, *spread, *seed)

	// Attach out-of-band embeddings
	if *vectorsPath != "" {
		vectors, err := readVectors(*vectorsPath)
		if err != nil {
			log.Fatalf("read vectors: %v", err)
		}
		corpus, err = corpus.WithVectors(vectors)
		if err != nil {
			log.Fatalf("import vectors: %v", err)
		}
		source = fmt.Sprintf("%s + %d imported from %s", source, len(vectors), *vectorsPath)
		fmt.Printf("  Imported %d vectors from %s\n", len(vectors), *vectorsPath)
	}

	store, err := anchors.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	versionID, err := store.Save(corpus, source)
	if err != nil {
		log.Fatalf("save corpus: %v", err)
	}

	fmt.Printf("\n=== Build Complete ===\n")
	fmt.Printf("  Version: %s\n", versionID)
	fmt.Printf("  Anchors: %d (%d searchable)\n", len(corpus.All()), len(corpus.Searchable()))
	for _, cat := range anchors.Categories() {
		fmt.Printf("  %-28s %d\n", cat, len(corpus.ByCategory(cat)))
	}
}

// #endregion main

// #region helpers
func readVectors(path string) (map[int][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vectors map[int][]float32
	if err := json.Unmarshal(data, &vectors); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return vectors, nil
}

// #endregion helpers
