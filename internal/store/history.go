// Package store persists completed validation rounds to a local SQLite
// database so regressions in annotated code can be inspected over time.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"methodreq/internal/check"
	"methodreq/internal/logging"
)

// HistoryStore records rounds in SQLite. Thread-safe.
type HistoryStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// RoundRecord is a stored round summary.
type RoundRecord struct {
	ID           string
	StartedAt    time.Time
	DurationMs   int64
	Packages     int
	Types        int
	Requirements int
	Diagnostics  int
}

// DiagnosticRecord is one stored diagnostic of a round.
type DiagnosticRecord struct {
	RoundID  string
	Pos      string
	Severity string
	Code     string
	Message  string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*HistoryStore, error) {
	logging.StoreDebug("opening history store at %s", path)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &HistoryStore{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	logging.Store("history store ready: %s", path)
	return s, nil
}

func (s *HistoryStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		packages INTEGER NOT NULL,
		types INTEGER NOT NULL,
		requirements INTEGER NOT NULL,
		diagnostics INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS round_diagnostics (
		round_id TEXT NOT NULL,
		pos TEXT NOT NULL,
		severity TEXT NOT NULL,
		code TEXT NOT NULL,
		message TEXT NOT NULL,
		FOREIGN KEY (round_id) REFERENCES rounds(id)
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_started ON rounds(started_at);
	CREATE INDEX IF NOT EXISTS idx_round_diags_round ON round_diagnostics(round_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRound persists a completed round and its diagnostics in one
// transaction.
func (s *HistoryStore) RecordRound(round check.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO rounds (id, started_at, duration_ms, packages, types, requirements, diagnostics)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		round.ID, round.Started.UTC(), round.Duration.Milliseconds(),
		round.Packages, round.Types, round.Requirements, len(round.Diagnostics),
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}

	for _, d := range round.Diagnostics {
		_, err = tx.Exec(
			`INSERT INTO round_diagnostics (round_id, pos, severity, code, message)
			 VALUES (?, ?, ?, ?, ?)`,
			round.ID, d.Pos.String(), d.Severity.String(), d.Code, d.Message,
		)
		if err != nil {
			return fmt.Errorf("insert diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logging.StoreDebug("recorded round %s (%d diagnostics)", round.ID, len(round.Diagnostics))
	return nil
}

// RecentRounds returns the most recent n rounds, newest first.
func (s *HistoryStore) RecentRounds(n int) ([]RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, packages, types, requirements, diagnostics
		 FROM rounds ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationMs,
			&r.Packages, &r.Types, &r.Requirements, &r.Diagnostics); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RoundDiagnostics returns the stored diagnostics of one round.
func (s *HistoryStore) RoundDiagnostics(roundID string) ([]DiagnosticRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT round_id, pos, severity, code, message
		 FROM round_diagnostics WHERE round_id = ?`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagnosticRecord
	for rows.Next() {
		var d DiagnosticRecord
		if err := rows.Scan(&d.RoundID, &d.Pos, &d.Severity, &d.Code, &d.Message); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
