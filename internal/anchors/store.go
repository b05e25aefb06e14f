package anchors

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS corpus_versions (
	version_id    TEXT PRIMARY KEY,
	dimension     INTEGER NOT NULL,
	searchable    INTEGER NOT NULL,
	source        TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS anchors (
	version_id     TEXT NOT NULL,
	anchor_id      INTEGER NOT NULL,
	category       TEXT NOT NULL,
	reference_text TEXT NOT NULL,
	weight         REAL NOT NULL,
	vector         BLOB,
	PRIMARY KEY (version_id, anchor_id),
	FOREIGN KEY (version_id) REFERENCES corpus_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store persists versioned corpus artifacts in SQLite.
type Store struct {
	db *sql.DB
}

// VersionInfo describes one saved corpus artifact.
type VersionInfo struct {
	VersionID  string
	Dimension  int
	Searchable int
	Source     string
	CreatedAt  time.Time
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region save
// Save writes c as a new version and returns its id.
func (s *Store) Save(c *Corpus, source string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO corpus_versions (version_id, dimension, searchable, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, c.Dimension(), len(c.searchable), source, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert version: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO anchors (version_id, anchor_id, category, reference_text, weight, vector)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("prepare anchor insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range c.anchors {
		var blob interface{}
		if a.HasVector() {
			blob = encodeVector(a.Vector)
		}
		if _, err := stmt.Exec(id, a.ID, string(a.Category), a.ReferenceText, a.Weight, blob); err != nil {
			return "", fmt.Errorf("insert anchor %d: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion save

// #region load
// Load reads the most recently saved version.
func (s *Store) Load() (*Corpus, string, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT version_id FROM corpus_versions ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&id)
	if err != nil {
		return nil, "", fmt.Errorf("latest corpus version: %w", err)
	}
	c, err := s.LoadVersion(id)
	if err != nil {
		return nil, "", err
	}
	return c, id, nil
}

// LoadVersion reads a specific version.
func (s *Store) LoadVersion(id string) (*Corpus, error) {
	rows, err := s.db.Query(
		`SELECT anchor_id, category, reference_text, weight, vector
		 FROM anchors WHERE version_id = ? ORDER BY anchor_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", id, err)
	}
	defer rows.Close()

	var list []Anchor
	for rows.Next() {
		var a Anchor
		var cat string
		var blob []byte
		if err := rows.Scan(&a.ID, &cat, &a.ReferenceText, &a.Weight, &blob); err != nil {
			return nil, fmt.Errorf("scan anchor: %w", err)
		}
		a.Category = Category(cat)
		if blob != nil {
			a.Vector = decodeVector(blob)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", id, err)
	}
	c, err := New(list)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", id, err)
	}
	return c, nil
}

// #endregion load

// #region versions
// Versions lists saved artifacts, newest first.
func (s *Store) Versions(limit int) ([]VersionInfo, error) {
	rows, err := s.db.Query(
		`SELECT version_id, dimension, searchable, source, created_at
		 FROM corpus_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []VersionInfo
	for rows.Next() {
		var v VersionInfo
		var created string
		if err := rows.Scan(&v.VersionID, &v.Dimension, &v.Searchable, &v.Source, &created); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		v.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, v)
	}
	return out, rows.Err()
}

// #endregion versions

// #region vector-encoding
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// #endregion vector-encoding
