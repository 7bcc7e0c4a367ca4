// Package memory keeps per-session conversation state for BuddyBot.
//
// Each session owns its ordered turn log, the name the user introduced themselves
// with, and a short buffer of recently classified topics. Nothing is shared between
// sessions and nothing survives a process restart.
package memory

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// RecentTopicsSize is the capacity of a session's recent-topics buffer.
const RecentTopicsSize = 3

type session struct {
	startedAt  time.Time
	lastActive time.Time
	turns      []models.Turn
	name       string
	recent     []models.Topic // most recent first
}

// Memory is an in-memory, session-keyed conversation store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
	now      func() time.Time
}

// Option configures a Memory.
type Option func(*Memory)

// WithMaxTurns caps the number of turns kept per session. The oldest turns are
// evicted first. Zero or a negative value keeps every turn.
func WithMaxTurns(n int) Option {
	return func(m *Memory) {
		m.maxTurns = n
	}
}

// WithClock overrides the clock used for session start times.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// New creates an empty Memory.
func New(opts ...Option) *Memory {
	m := &Memory{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	slog.Debug("Memory created", "max_turns", m.maxTurns)
	return m
}

// StartSession creates an empty session, resetting any existing state for id.
func (m *Memory) StartSession(id string) models.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.newSessionLocked(id)
	slog.Debug("Memory StartSession", "session_id", id)
	return models.SessionInfo{SessionID: id, StartedAt: s.startedAt}
}

// EndSession discards a session. It reports whether the session existed.
func (m *Memory) EndSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	slog.Debug("Memory EndSession", "session_id", id, "existed", ok)
	return ok
}

// HasSession reports whether id has been started and not ended.
func (m *Memory) HasSession(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// Sessions returns the ids of all active sessions, sorted.
func (m *Memory) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Record appends turn to the session log, starting the session if needed.
// It returns how many old turns were evicted to honor the cap.
func (m *Memory) Record(id string, turn models.Turn) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionLocked(id)
	s.turns = append(s.turns, turn)
	s.lastActive = m.now()

	evicted := 0
	if m.maxTurns > 0 && len(s.turns) > m.maxTurns {
		evicted = len(s.turns) - m.maxTurns
		kept := make([]models.Turn, m.maxTurns)
		copy(kept, s.turns[evicted:])
		s.turns = kept
		slog.Debug("Memory Record evicted old turns", "session_id", id, "evicted", evicted)
	}
	return evicted
}

// History returns a copy of the session's turns, oldest first. Unknown sessions
// yield an empty slice.
func (m *Memory) History(id string) []models.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return []models.Turn{}
	}
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastTopic returns the topic of the most recent turn.
func (m *Memory) LastTopic(id string) (models.Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || len(s.turns) == 0 {
		return "", false
	}
	return s.turns[len(s.turns)-1].Topic, true
}

// PushTopic puts topic at the front of the recent-topics buffer and truncates it
// to RecentTopicsSize.
func (m *Memory) PushTopic(id string, topic models.Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionLocked(id)
	recent := make([]models.Topic, 0, RecentTopicsSize)
	recent = append(recent, topic)
	for _, t := range s.recent {
		if len(recent) == RecentTopicsSize {
			break
		}
		recent = append(recent, t)
	}
	s.recent = recent
}

// RecentTopics returns a copy of the recent-topics buffer, most recent first.
func (m *Memory) RecentTopics(id string) []models.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	out := make([]models.Topic, len(s.recent))
	copy(out, s.recent)
	return out
}

// Name returns the name the session's user introduced, or "".
func (m *Memory) Name(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s.name
	}
	return ""
}

// SetName overwrites the session's remembered name.
func (m *Memory) SetName(id, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionLocked(id).name = name
}

// ExpireIdle ends every session with no recorded turn for longer than maxIdle and
// returns the ended ids, sorted. A non-positive maxIdle expires nothing.
func (m *Memory) ExpireIdle(maxIdle time.Duration) []string {
	if maxIdle <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxIdle)
	var expired []string
	for id, s := range m.sessions {
		if s.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	if len(expired) > 0 {
		slog.Debug("Memory ExpireIdle ended sessions", "count", len(expired), "max_idle", maxIdle)
	}
	return expired
}

// sessionLocked returns the session for id, creating it when absent.
// Callers must hold m.mu for writing.
func (m *Memory) sessionLocked(id string) *session {
	if s, ok := m.sessions[id]; ok {
		return s
	}
	slog.Debug("Memory auto-starting session", "session_id", id)
	return m.newSessionLocked(id)
}

func (m *Memory) newSessionLocked(id string) *session {
	now := m.now()
	s := &session{startedAt: now, lastActive: now}
	m.sessions[id] = s
	return s
}
