package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/compute"
	"github.com/danielpatrickdp/neural-bridge/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	dbPath := flag.String("db", "", "replay against the latest stored corpus instead of the fixture's generated one")
	backendName := flag.String("backend", "sequential", "compute backend: sequential | accelerated")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--db path/to/neural_bridge.db] [--backend name]")
		os.Exit(2)
	}
	os.Exit(run(*fixturePath, *dbPath, *backendName))
}

// #endregion main

// #region run

func run(fixturePath, dbPath, backendName string) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	corpus, err := loadCorpus(f, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load corpus: %v\n", err)
		return 2
	}

	kind, err := compute.ParseKind(backendName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		return 2
	}
	backend, err := compute.Select(kind, log.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		return 2
	}

	cases, err := f.ResolveCases(corpus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve cases: %v\n", err)
		return 2
	}

	results := replay.Replay(corpus, backend, f.Map, cases, f.Config.ToReplayConfig())
	return printComparison(f, results)
}

func loadCorpus(f *replay.Fixture, dbPath string) (*anchors.Corpus, error) {
	if dbPath == "" {
		return f.Corpus.BuildCorpus()
	}
	store, err := anchors.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	c, _, err := store.Load()
	return c, err
}

// #endregion run

// #region output

// printComparison outputs expected vs replayed outcomes and returns the exit code.
func printComparison(f *replay.Fixture, results []replay.ReplayResult) int {
	fmt.Printf("%-22s| %-10s| %-10s| %-10s| %-8s| %s\n", "Case", "Expected", "Replayed", "Band", "Score", "Match")
	fmt.Printf("%-22s+%-10s+%-10s+%-10s+%-8s+%s\n",
		"----------------------", "-----------", "-----------", "-----------", "---------", "------")

	matches := 0
	for i, r := range results {
		exp := f.Cases[i]
		band := "-"
		if r.Decision != nil {
			band = string(r.Decision.Band)
		}
		match := "DIFF"
		if outcomeMatches(exp, r, band) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-22s| %-10s| %-10s| %-10s| %-8.4f| %s\n",
			r.CaseID, exp.ExpectedAction, r.Action, band, r.Alignment.Quality.CalibrationScore, match)
	}

	s := replay.Summarize(results)
	diverge := len(results) - matches
	fmt.Printf("\nSummary: %d total, %d accepted (%d premium), %d rejected, %d errors, mean score %.4f\n",
		s.TotalCases, s.Accepted, s.Premium, s.Rejected, s.Errors, s.MeanScore)
	fmt.Printf("         %d match, %d diverge\n", matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// outcomeMatches compares the replayed action, and band and tier when the
// fixture pins them.
func outcomeMatches(exp replay.FixtureCase, r replay.ReplayResult, band string) bool {
	if exp.ExpectedAction != r.Action {
		return false
	}
	if exp.ExpectedBand != "" && exp.ExpectedBand != band {
		return false
	}
	if exp.ExpectedTier != "" && (r.Decision == nil || exp.ExpectedTier != string(r.Decision.Tier)) {
		return false
	}
	return true
}

// #endregion output
