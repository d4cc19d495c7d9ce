// Package session persists and restores conversation state across
// process runs. It is opt-in: C8 only touches SQLite when the caller
// passes --resume or --persist, per SPEC_FULL.md §4.12.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/opencea/cea/internal/cost"
	"github.com/opencea/cea/internal/history"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	messages_json TEXT NOT NULL,
	cost_json     TEXT NOT NULL
);
`

// Store is a SQLite-backed snapshot store, one row per session.
type Store struct {
	db *sql.DB
}

// Snapshot is the full persisted state of one session.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []history.Message
	Cost      cost.Ledger
}

// Open creates or opens the sqlite database at path, enabling WAL mode
// for concurrent-safe writes, and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("session: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the session's full state. Called after every completed
// model turn when persistence is opted into.
func (s *Store) Save(ctx context.Context, id string, messages []history.Message, ledger cost.Ledger) error {
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("session: marshal messages: %w", err)
	}
	costJSON, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("session: marshal cost: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, messages_json, cost_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			messages_json = excluded.messages_json,
			cost_json = excluded.cost_json
	`, id, now, now, string(messagesJSON), string(costJSON))
	if err != nil {
		return fmt.Errorf("session: save %s: %w", id, err)
	}
	return nil
}

// Load restores a previously saved session. found is false when no row
// exists for id; Load does not treat this as an error, and the caller
// decides what a missing session means (cmd/cea makes it fatal for
// --resume).
func (s *Store) Load(ctx context.Context, id string) (Snapshot, bool, error) {
	var (
		snap                   Snapshot
		messagesJSON, costJSON string
	)
	snap.ID = id

	row := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at, messages_json, cost_json FROM sessions WHERE id = ?`, id)
	err := row.Scan(&snap.CreatedAt, &snap.UpdatedAt, &messagesJSON, &costJSON)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("session: load %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(messagesJSON), &snap.Messages); err != nil {
		return Snapshot{}, false, fmt.Errorf("session: decode messages for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(costJSON), &snap.Cost); err != nil {
		return Snapshot{}, false, fmt.Errorf("session: decode cost for %s: %w", id, err)
	}
	return snap, true, nil
}
