// Package store provides storage backends for BuddyBot.
//
// This file implements a PostgreSQL-backed transcript archive.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/BuddyBot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// ArchiveTurn inserts a turn into the archive.
func (s *PostgresStore) ArchiveTurn(ctx context.Context, sessionID string, turn models.Turn) (models.ArchivedTurn, error) {
	rec := newArchivedTurn(sessionID, turn)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, user_text, bot_text, topic, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.SessionID, rec.UserText, rec.BotText, string(rec.Topic), rec.Timestamp)
	if err != nil {
		slog.Error("PostgresStore ArchiveTurn failed", "error", err, "session_id", sessionID)
		return models.ArchivedTurn{}, fmt.Errorf("failed to archive turn for %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore ArchiveTurn succeeded", "session_id", sessionID, "topic", rec.Topic)
	return rec, nil
}

// ListTurns returns the archived turns for a session in insertion order.
func (s *PostgresStore) ListTurns(ctx context.Context, sessionID string) ([]models.ArchivedTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_text, bot_text, topic, created_at FROM turns WHERE session_id = $1 ORDER BY seq`,
		sessionID)
	if err != nil {
		slog.Error("PostgresStore ListTurns query failed", "error", err, "session_id", sessionID)
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanArchivedTurns(rows)
	if err != nil {
		slog.Error("PostgresStore ListTurns scan failed", "error", err, "session_id", sessionID)
		return nil, err
	}
	slog.Debug("PostgresStore ListTurns succeeded", "session_id", sessionID, "count", len(turns))
	return turns, nil
}

// ClearTurns deletes all archived turns and dedup records (for tests).
func (s *PostgresStore) ClearTurns() error {
	for _, table := range []string{"turns", "inbound_dedup"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			slog.Error("PostgresStore ClearTurns failed", "error", err, "table", table)
			return err
		}
	}
	return nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
