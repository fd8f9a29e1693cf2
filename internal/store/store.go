// Package store persists mission-mode sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/session"
	"mavplan/internal/units"
)

var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	mission_json TEXT,
	history_json TEXT NOT NULL DEFAULT '[]',
	home_json    TEXT,
	item_count   INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`

// Info is one row of `sessions list`.
type Info struct {
	ID        string
	Mode      mission.Mode
	Items     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the sessions database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path. ":memory:" gives
// a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DefaultPath is ~/.mavplan/sessions.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mavplan", "sessions.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a session snapshot. created_at survives updates.
func (s *Store) Save(ctx context.Context, snap session.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("session ID must be set")
	}

	var missionJSON, homeJSON sql.NullString
	items := 0
	if snap.Mission != nil {
		b, err := json.Marshal(snap.Mission)
		if err != nil {
			return fmt.Errorf("failed to encode mission: %w", err)
		}
		missionJSON = sql.NullString{String: string(b), Valid: true}
		items = snap.Mission.Len()
	}
	if snap.Home != nil {
		b, err := json.Marshal(snap.Home)
		if err != nil {
			return fmt.Errorf("failed to encode home: %w", err)
		}
		homeJSON = sql.NullString{String: string(b), Valid: true}
	}
	history := snap.History
	if history == nil {
		history = []planner.ConversationTurn{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, mission_json, history_json, home_json, item_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   mode = excluded.mode,
		   mission_json = excluded.mission_json,
		   history_json = excluded.history_json,
		   home_json = excluded.home_json,
		   item_count = excluded.item_count,
		   updated_at = excluded.updated_at`,
		snap.ID, string(snap.Mode), missionJSON, string(historyJSON), homeJSON, items, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a snapshot back.
func (s *Store) Load(ctx context.Context, id string) (session.Snapshot, error) {
	var (
		mode                  string
		missionJSON, homeJSON sql.NullString
		historyJSON           string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT mode, mission_json, history_json, home_json FROM sessions WHERE id = ?",
		id,
	).Scan(&mode, &missionJSON, &historyJSON, &homeJSON)
	if err == sql.ErrNoRows {
		return session.Snapshot{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to get session: %w", err)
	}

	snap := session.Snapshot{ID: id, Mode: mission.Mode(mode)}
	if missionJSON.Valid {
		var m mission.Mission
		if err := json.Unmarshal([]byte(missionJSON.String), &m); err != nil {
			return session.Snapshot{}, fmt.Errorf("failed to decode mission of session %s: %w", id, err)
		}
		snap.Mission = &m
	}
	if homeJSON.Valid {
		var home units.LatLon
		if err := json.Unmarshal([]byte(homeJSON.String), &home); err != nil {
			return session.Snapshot{}, fmt.Errorf("failed to decode home of session %s: %w", id, err)
		}
		snap.Home = &home
	}
	if err := json.Unmarshal([]byte(historyJSON), &snap.History); err != nil {
		return session.Snapshot{}, fmt.Errorf("failed to decode history of session %s: %w", id, err)
	}
	return snap, nil
}

// List returns sessions, most recently updated first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Info, error) {
	query := "SELECT id, mode, item_count, created_at, updated_at FROM sessions ORDER BY updated_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info Info
			mode string
		)
		if err := rows.Scan(&info.ID, &mode, &info.Items, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.Mode = mission.Mode(mode)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}
