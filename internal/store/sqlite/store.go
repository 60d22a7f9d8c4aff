// Package sqlite persists the paper account, trade log, prediction log
// and per-strategy trust stats in a single WAL-mode database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite store. The scan loop, validator and
// API share it; the connection pool is pinned to one writer so
// concurrent loops serialize at the database.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS account (
			id      INTEGER PRIMARY KEY CHECK (id = 1),
			balance REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS holdings (
			ticker    TEXT PRIMARY KEY,
			qty       INTEGER NOT NULL,
			avg_price REAL NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker   TEXT NOT NULL,
			side     TEXT NOT NULL,
			price    REAL NOT NULL,
			qty      INTEGER NOT NULL,
			strategy TEXT,
			pnl      REAL,
			ts       TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS predictions (
			id         TEXT PRIMARY KEY,
			ticker     TEXT NOT NULL,
			ts         INTEGER NOT NULL,
			direction  TEXT NOT NULL,
			confidence REAL NOT NULL,
			price      REAL NOT NULL,
			strategy   TEXT NOT NULL,
			outcome    TEXT NOT NULL DEFAULT 'PENDING',
			exit_price REAL,
			pnl_pct    REAL
		);
		CREATE INDEX IF NOT EXISTS idx_predictions_outcome ON predictions(outcome);

		CREATE TABLE IF NOT EXISTS strategy_stats (
			strategy     TEXT PRIMARY KEY,
			total        INTEGER NOT NULL DEFAULT 0,
			wins         INTEGER NOT NULL DEFAULT 0,
			losses       INTEGER NOT NULL DEFAULT 0,
			win_rate     REAL NOT NULL DEFAULT 0,
			avg_pnl      REAL NOT NULL DEFAULT 0,
			trust_score  REAL NOT NULL DEFAULT 0.5,
			last_updated INTEGER NOT NULL
		);
	`)
	return err
}
