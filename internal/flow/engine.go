// Package flow runs a single chat turn through BuddyBot's decision pipeline.
//
// HandleMessage extracts a self-introduced name, classifies the message against the
// session's history, draws and personalizes a reply, records the turn and mirrors it
// to the transcript archive when one is configured.
package flow

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/catalog"
	"github.com/BTreeMap/BuddyBot/internal/classifier"
	"github.com/BTreeMap/BuddyBot/internal/memory"
	"github.com/BTreeMap/BuddyBot/internal/models"
	"github.com/BTreeMap/BuddyBot/internal/names"
	"github.com/BTreeMap/BuddyBot/internal/responder"
)

// Rand is the random source shared by classification and reply selection.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Archive receives a copy of every recorded turn.
type Archive interface {
	ArchiveTurn(ctx context.Context, sessionID string, turn models.Turn) (models.ArchivedTurn, error)
}

// Opts holds configuration options for the Engine.
type Opts struct {
	Catalog                *catalog.Catalog
	Memory                 *memory.Memory
	Archive                Archive
	Rand                   Rand
	Clock                  func() time.Time
	PersonalizeProbability float64
	RecencyProbability     float64
}

// Option defines a configuration option for the Engine.
type Option func(*Opts)

// WithCatalog sets the reply catalog. Defaults to the built-in catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *Opts) { o.Catalog = c }
}

// WithMemory sets the conversation memory. Defaults to an unbounded memory.
func WithMemory(m *memory.Memory) Option {
	return func(o *Opts) { o.Memory = m }
}

// WithArchive mirrors every turn into a transcript archive.
func WithArchive(a Archive) Option {
	return func(o *Opts) { o.Archive = a }
}

// WithRand sets the random source.
func WithRand(r Rand) Option {
	return func(o *Opts) { o.Rand = r }
}

// WithSeed seeds a PCG random source so runs are reproducible.
func WithSeed(seed uint64) Option {
	return func(o *Opts) { o.Rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithClock overrides the clock used to timestamp turns.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Clock = now }
}

// WithPersonalizeProbability sets how often a known name is worked into a reply.
func WithPersonalizeProbability(p float64) Option {
	return func(o *Opts) { o.PersonalizeProbability = p }
}

// WithRecencyProbability sets how often the recency rule reuses a recent topic.
func WithRecencyProbability(p float64) Option {
	return func(o *Opts) { o.RecencyProbability = p }
}

// Engine is the chat responder. It is safe for concurrent use; turns are
// processed one at a time.
type Engine struct {
	mu         sync.Mutex
	memory     *memory.Memory
	classifier *classifier.Classifier
	selector   *responder.Selector
	archive    Archive
	now        func() time.Time
}

// NewEngine builds an Engine from the given options.
func NewEngine(opts ...Option) *Engine {
	cfg := Opts{
		PersonalizeProbability: responder.DefaultPersonalizeProbability,
		RecencyProbability:     classifier.DefaultRecencyProbability,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Memory == nil {
		cfg.Memory = memory.New()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	slog.Debug("Engine created",
		"archive_set", cfg.Archive != nil,
		"personalize_probability", cfg.PersonalizeProbability,
		"recency_probability", cfg.RecencyProbability)

	return &Engine{
		memory:     cfg.Memory,
		classifier: classifier.New(cfg.Rand, classifier.WithRecencyProbability(cfg.RecencyProbability)),
		selector:   responder.New(cfg.Catalog, cfg.Rand, responder.WithPersonalizeProbability(cfg.PersonalizeProbability)),
		archive:    cfg.Archive,
		now:        cfg.Clock,
	}
}

// StartSession initializes (or resets) a session.
func (e *Engine) StartSession(sessionID string) (models.SessionInfo, error) {
	if err := models.ValidateSessionID(sessionID); err != nil {
		return models.SessionInfo{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	info := e.memory.StartSession(sessionID)
	slog.Info("Engine session started", "session_id", sessionID)
	return info, nil
}

// EndSession discards a session's state. It reports whether the session existed.
func (e *Engine) EndSession(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	existed := e.memory.EndSession(sessionID)
	slog.Info("Engine session ended", "session_id", sessionID, "existed", existed)
	return existed
}

// ExpireIdleSessions ends sessions idle for longer than maxIdle and returns how many ended.
func (e *Engine) ExpireIdleSessions(maxIdle time.Duration) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	expired := e.memory.ExpireIdle(maxIdle)
	if len(expired) > 0 {
		slog.Info("Engine expired idle sessions", "count", len(expired), "max_idle", maxIdle)
	}
	return len(expired)
}

// HasSession reports whether a session is active.
func (e *Engine) HasSession(sessionID string) bool {
	return e.memory.HasSession(sessionID)
}

// History returns the recorded turns of a session, oldest first.
func (e *Engine) History(sessionID string) []models.Turn {
	return e.memory.History(sessionID)
}

// HandleMessage produces the reply for text in the given session. Unknown sessions
// are started on the fly. The only error is an invalid session id; callers are
// expected to filter blank text themselves.
func (e *Engine) HandleMessage(ctx context.Context, sessionID, text string) (models.ChatResult, error) {
	if err := models.ValidateSessionID(sessionID); err != nil {
		slog.Warn("Engine HandleMessage rejected session id", "error", err)
		return models.ChatResult{}, err
	}

	turn := e.respond(sessionID, text)

	if e.archive != nil {
		if _, err := e.archive.ArchiveTurn(ctx, sessionID, turn); err != nil {
			slog.Error("Engine archive failed", "error", err, "session_id", sessionID)
		}
	}

	return models.ChatResult{SessionID: sessionID, Reply: turn.BotText, Topic: turn.Topic}, nil
}

// respond runs the in-memory part of a turn under the engine lock.
func (e *Engine) respond(sessionID, text string) models.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name, ok := names.Extract(text); ok {
		e.memory.SetName(sessionID, name)
		slog.Debug("Engine name extracted", "session_id", sessionID, "name", name)
	}

	history := e.memory.History(sessionID)
	recent := e.memory.RecentTopics(sessionID)
	topic, rule := e.classifier.Explain(text, history, recent)
	e.memory.PushTopic(sessionID, topic)

	reply := e.selector.Select(topic, e.memory.Name(sessionID))
	turn := models.Turn{
		UserText:  text,
		BotText:   reply,
		Topic:     topic,
		Timestamp: e.now(),
	}
	e.memory.Record(sessionID, turn)

	slog.Debug("Engine turn handled",
		"session_id", sessionID,
		"topic", topic,
		"rule", rule,
		"text_length", len(text),
		"history_length", len(history)+1)
	return turn
}
