package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/logging"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to neural_bridge.db")
	last := flag.Int("last", 20, "show N most recent corpus versions or verdicts")
	version := flag.String("version", "", "show category breakdown for one corpus version")
	verdicts := flag.Bool("verdicts", false, "list recent gate verdicts instead of corpus versions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/neural_bridge.db [--last N] [--version id] [--verdicts] [--json]")
		os.Exit(2)
	}

	store, err := anchors.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *verdicts:
		err = runVerdictMode(store, *last, *jsonOut)
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID  string `json:"version_id"`
	Dimension  int    `json:"dimension"`
	Searchable int    `json:"searchable"`
	Source     string `json:"source"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(store *anchors.Store, last int, jsonOut bool) error {
	versions, err := store.Versions(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no corpus versions found")
		return nil
	}

	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[i] = listRow{
			VersionID:  v.VersionID,
			Dimension:  v.Dimension,
			Searchable: v.Searchable,
			Source:     v.Source,
			CreatedAt:  v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-12s  %6s  %10s  %-20s  %s\n", "Version", "Dim", "Searchable", "Time", "Source")
	fmt.Printf("%-12s+-%6s+-%10s+-%-20s+-%s\n",
		"------------", "------", "----------", "--------------------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %6d  %10d  %-20s  %s\n", shortID(r.VersionID), r.Dimension, r.Searchable, r.CreatedAt, r.Source)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type categoryRow struct {
	Category   string  `json:"category"`
	Anchors    int     `json:"anchors"`
	Searchable int     `json:"searchable"`
	MeanWeight float64 `json:"mean_weight"`
}

type detailOutput struct {
	VersionID  string        `json:"version_id"`
	Dimension  int           `json:"dimension"`
	Anchors    int           `json:"anchors"`
	Searchable int           `json:"searchable"`
	Categories []categoryRow `json:"categories"`
}

func runDetailMode(store *anchors.Store, versionID string, jsonOut bool) error {
	corpus, err := store.LoadVersion(versionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		VersionID:  versionID,
		Dimension:  corpus.Dimension(),
		Anchors:    len(corpus.All()),
		Searchable: len(corpus.Searchable()),
	}
	for _, cat := range anchors.Categories() {
		row := categoryRow{Category: string(cat)}
		for _, a := range corpus.ByCategory(cat) {
			row.Anchors++
			row.MeanWeight += a.Weight
			if a.HasVector() {
				row.Searchable++
			}
		}
		if row.Anchors > 0 {
			row.MeanWeight /= float64(row.Anchors)
		}
		out.Categories = append(out.Categories, row)
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Version:    %s\n", out.VersionID)
	fmt.Printf("Dimension:  %d\n", out.Dimension)
	fmt.Printf("Anchors:    %d (%d searchable)\n", out.Anchors, out.Searchable)
	fmt.Printf("\nCategories:\n")
	for _, r := range out.Categories {
		fmt.Printf("  %-28s %4d  %4d  %.3f\n", r.Category, r.Anchors, r.Searchable, r.MeanWeight)
	}
	return nil
}

// #endregion detail-mode

// #region verdict-mode

type verdictRow struct {
	VerdictID string   `json:"verdict_id"`
	Models    string   `json:"models"`
	Score     float64  `json:"score"`
	Band      string   `json:"band"`
	Action    string   `json:"action"`
	Tier      string   `json:"tier"`
	SoftScore float64  `json:"soft_score"`
	Loss      *float64 `json:"contrast_loss,omitempty"`
	Vetoes    []string `json:"vetoes,omitempty"`
	CreatedAt string   `json:"created_at"`
}

func runVerdictMode(store *anchors.Store, last int, jsonOut bool) error {
	if err := logging.Migrate(store.DB()); err != nil {
		return err
	}
	entries, err := logging.Recent(store.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no verdicts found")
		return nil
	}

	rows := make([]verdictRow, len(entries))
	for i, e := range entries {
		r := verdictRow{
			VerdictID: e.VerdictID,
			Models:    e.SourceModel + "->" + e.TargetModel,
			Score:     e.Score,
			Band:      e.Band,
			Action:    e.Action,
			Tier:      e.Tier,
			SoftScore: e.SoftScore,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if rec := parseRecord(e.RecordJSON); rec != nil {
			r.Loss = rec.ContrastLoss
			r.Vetoes = rec.VetoTypes
		}
		rows[i] = r
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-12s  %-24s  %6s  %-10s  %-8s  %-8s  %5s  %s\n",
		"Verdict", "Models", "Score", "Band", "Action", "Tier", "Soft", "Time")
	fmt.Printf("%-12s+-%-24s+-%6s+-%-10s+-%-8s+-%-8s+-%5s+-%s\n",
		"------------", "------------------------", "------", "----------", "--------", "--------", "-----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-12s  %-24s  %6.4f  %-10s  %-8s  %-8s  %5.2f  %s\n",
			shortID(r.VerdictID), r.Models, r.Score, r.Band, r.Action, r.Tier, r.SoftScore, r.CreatedAt)
	}
	return nil
}

// #endregion verdict-mode

// #region output

func parseRecord(recordJSON string) *logging.VerdictRecord {
	if recordJSON == "" {
		return nil
	}
	var rec logging.VerdictRecord
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil
	}
	return &rec
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
