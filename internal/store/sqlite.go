// Package store provides storage backends for BuddyBot.
//
// This file implements an SQLite-backed transcript archive.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/BuddyBot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions is used when creating the archive's parent directory.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore archives turns in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the archive file named by WithSQLiteDSN
// and applies the schema.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully", "path", dsn)

	return &SQLiteStore{db: db}, nil
}

// ArchiveTurn inserts a turn into the archive.
func (s *SQLiteStore) ArchiveTurn(ctx context.Context, sessionID string, turn models.Turn) (models.ArchivedTurn, error) {
	rec := newArchivedTurn(sessionID, turn)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, user_text, bot_text, topic, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.UserText, rec.BotText, string(rec.Topic), rec.Timestamp)
	if err != nil {
		slog.Error("SQLiteStore ArchiveTurn failed", "error", err, "session_id", sessionID)
		return models.ArchivedTurn{}, fmt.Errorf("failed to archive turn for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore ArchiveTurn succeeded", "session_id", sessionID, "topic", rec.Topic)
	return rec, nil
}

// ListTurns returns the archived turns for a session in insertion order.
func (s *SQLiteStore) ListTurns(ctx context.Context, sessionID string) ([]models.ArchivedTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_text, bot_text, topic, created_at FROM turns WHERE session_id = ? ORDER BY rowid`,
		sessionID)
	if err != nil {
		slog.Error("SQLiteStore ListTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanArchivedTurns(rows)
	if err != nil {
		slog.Error("SQLiteStore ListTurns scan failed", "error", err, "session_id", sessionID)
		return nil, err
	}
	slog.Debug("SQLiteStore ListTurns succeeded", "session_id", sessionID, "count", len(turns))
	return turns, nil
}

// ClearTurns deletes all archived turns (for tests).
func (s *SQLiteStore) ClearTurns() error {
	_, err := s.db.Exec("DELETE FROM turns")
	if err != nil {
		slog.Error("SQLiteStore ClearTurns failed", "error", err)
		return err
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
