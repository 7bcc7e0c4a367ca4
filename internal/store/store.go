// Package store provides transcript archive backends for BuddyBot.
//
// An archive receives every recorded turn for offline review. It is write-through
// only: the engine never reloads conversation state from it, so sessions still
// start empty after a restart. Backends: in-memory, SQLite and PostgreSQL.
package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
	"github.com/google/uuid"
)

// Store is the transcript archive interface.
type Store interface {
	// ArchiveTurn stores a copy of turn under sessionID and returns the stored record.
	ArchiveTurn(ctx context.Context, sessionID string, turn models.Turn) (models.ArchivedTurn, error)
	// ListTurns returns the archived turns of a session in recording order.
	ListTurns(ctx context.Context, sessionID string) ([]models.ArchivedTurn, error)
	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or key=value connection
// strings and "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") {
		return "postgres"
	}
	if strings.Contains(dsn, " ") && (strings.Contains(dsn, "user=") || strings.Contains(dsn, "dbname=")) {
		return "postgres"
	}
	return "sqlite3"
}

// Open selects a backend from the DSN. An empty DSN yields an in-memory store.
func Open(dsn string) (Store, error) {
	if dsn == "" {
		slog.Debug("No archive DSN provided, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		pg, err := NewPostgresStore(WithPostgresDSN(dsn))
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	lite, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// newArchivedTurn assigns an id and normalizes the timestamp for storage.
func newArchivedTurn(sessionID string, turn models.Turn) models.ArchivedTurn {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	turn.Timestamp = turn.Timestamp.UTC()
	return models.ArchivedTurn{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Turn:      turn,
	}
}

// InMemoryStore is a simple in-memory archive, used when no database is configured.
type InMemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]models.ArchivedTurn
}

// NewInMemoryStore creates an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]models.ArchivedTurn)}
}

// ArchiveTurn appends turn to the session's archive.
func (s *InMemoryStore) ArchiveTurn(ctx context.Context, sessionID string, turn models.Turn) (models.ArchivedTurn, error) {
	rec := newArchivedTurn(sessionID, turn)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[sessionID] = append(s.turns[sessionID], rec)
	return rec, nil
}

// ListTurns returns a copy of the session's archived turns.
func (s *InMemoryStore) ListTurns(ctx context.Context, sessionID string) ([]models.ArchivedTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ArchivedTurn, len(s.turns[sessionID]))
	copy(out, s.turns[sessionID])
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
