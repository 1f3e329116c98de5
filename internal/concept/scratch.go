package concept

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Scratch is a disposable SQLite-backed log of clustering runs, kept
// for operators debugging why a cycle merged or split the way it did.
// It holds no authoritative state — evolved_concepts.json is always the
// source of truth — so a missing or corrupt scratch.db never blocks a
// cycle.
type Scratch struct {
	db *sql.DB
}

// OpenScratch opens (creating if needed) the clustering scratch database.
func OpenScratch(path string) (*Scratch, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open concept scratch db: %w", err)
	}
	s := &Scratch{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Scratch) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cluster_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ran_at DATETIME NOT NULL,
		cluster_count INTEGER NOT NULL,
		noise_count INTEGER NOT NULL,
		epsilon REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cluster_assignments (
		run_id INTEGER NOT NULL,
		cluster_index INTEGER NOT NULL,
		thought_id TEXT NOT NULL,
		FOREIGN KEY(run_id) REFERENCES cluster_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_run ON cluster_assignments(run_id);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("init concept scratch schema: %w", err)
	}
	return nil
}

// RecordRun logs one clustering pass: the clusters found (as thought id
// sets) and how many points were classified as noise.
func (s *Scratch) RecordRun(clusters [][]string, noiseCount int, epsilon float64) error {
	res, err := s.db.Exec(
		`INSERT INTO cluster_runs (ran_at, cluster_count, noise_count, epsilon) VALUES (?, ?, ?, ?)`,
		time.Now(), len(clusters), noiseCount, epsilon,
	)
	if err != nil {
		return fmt.Errorf("record cluster run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read run id: %w", err)
	}

	stmt, err := s.db.Prepare(`INSERT INTO cluster_assignments (run_id, cluster_index, thought_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	for ci, members := range clusters {
		for _, id := range members {
			if _, err := stmt.Exec(runID, ci, id); err != nil {
				return fmt.Errorf("record assignment: %w", err)
			}
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Scratch) Close() error {
	return s.db.Close()
}
