package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS verdict_log (
    verdict_id     TEXT PRIMARY KEY,
    corpus_version TEXT NOT NULL,
    source_model   TEXT NOT NULL,
    target_model   TEXT NOT NULL,
    score          REAL NOT NULL,
    coverage       REAL NOT NULL,
    band           TEXT NOT NULL,
    action         TEXT NOT NULL,
    tier           TEXT NOT NULL,
    soft_score     REAL NOT NULL,
    reason         TEXT,
    record_json    TEXT,
    created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verdict_log_created ON verdict_log(created_at);
`

// #region migrate
// Migrate creates the verdict_log table if it does not exist.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate verdict_log: %w", err)
	}
	return nil
}

// #endregion migrate

// #region log-verdict
// LogVerdict writes a verdict entry and returns its id.
func LogVerdict(db *sql.DB, entry VerdictEntry) (string, error) {
	if entry.VerdictID == "" {
		entry.VerdictID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO verdict_log (verdict_id, corpus_version, source_model, target_model, score, coverage, band, action, tier, soft_score, reason, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VerdictID,
		entry.CorpusVersion,
		entry.SourceModel,
		entry.TargetModel,
		entry.Score,
		entry.Coverage,
		entry.Band,
		entry.Action,
		entry.Tier,
		entry.SoftScore,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.RecordJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("log verdict: %w", err)
	}
	return entry.VerdictID, nil
}

// #endregion log-verdict

// #region recent
// Recent returns up to limit verdicts, newest first.
func Recent(db *sql.DB, limit int) ([]VerdictEntry, error) {
	rows, err := db.Query(
		`SELECT verdict_id, corpus_version, source_model, target_model, score, coverage, band, action, tier, soft_score, reason, record_json, created_at
		 FROM verdict_log ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictEntry
	for rows.Next() {
		var e VerdictEntry
		var reason, record sql.NullString
		var created string
		if err := rows.Scan(&e.VerdictID, &e.CorpusVersion, &e.SourceModel, &e.TargetModel,
			&e.Score, &e.Coverage, &e.Band, &e.Action, &e.Tier, &e.SoftScore,
			&reason, &record, &created); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		e.Reason = reason.String
		e.RecordJSON = record.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
