// Package api exposes the BuddyBot engine over HTTP.
//
// Clients open a session, post messages into it and read back the replies, the
// in-memory history or the archived transcript. When the Twilio channel is enabled
// the same server also receives Twilio's inbound WhatsApp webhook.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// Constants for server configuration
const (
	// DefaultAddr is the listen address used when none is configured
	DefaultAddr = ":8080"
	// TwilioWebhookPath is where Twilio posts inbound WhatsApp messages
	TwilioWebhookPath = "/twilio/whatsapp"
	// DefaultShutdownTimeout bounds graceful shutdown
	DefaultShutdownTimeout = 10 * time.Second
	// maxRequestBodyBytes caps JSON request bodies
	maxRequestBodyBytes = 1 << 20
)

// ChatEngine is the conversation engine behind the HTTP surface.
type ChatEngine interface {
	StartSession(sessionID string) (models.SessionInfo, error)
	EndSession(sessionID string) bool
	HasSession(sessionID string) bool
	History(sessionID string) []models.Turn
	HandleMessage(ctx context.Context, sessionID, text string) (models.ChatResult, error)
}

// TranscriptReader reads archived turns.
type TranscriptReader interface {
	ListTurns(ctx context.Context, sessionID string) ([]models.ArchivedTurn, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	Archive       TranscriptReader
	TwilioWebhook http.HandlerFunc
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithArchive enables GET /sessions/{id}/transcript.
func WithArchive(archive TranscriptReader) Option {
	return func(o *Opts) { o.Archive = archive }
}

// WithTwilioWebhook mounts the Twilio inbound webhook handler.
func WithTwilioWebhook(h http.HandlerFunc) Option {
	return func(o *Opts) { o.TwilioWebhook = h }
}

// Server is the BuddyBot HTTP API.
type Server struct {
	engine     ChatEngine
	archive    TranscriptReader
	newID      func() string
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer builds a Server with its routes registered.
func NewServer(engine ChatEngine, newID func() string, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		engine:  engine,
		archive: cfg.Archive,
		newID:   newID,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /sessions", s.createSessionHandler)
	s.mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	s.mux.HandleFunc("GET /sessions/{id}/history", s.historyHandler)
	s.mux.HandleFunc("GET /sessions/{id}/transcript", s.transcriptHandler)
	s.mux.HandleFunc("DELETE /sessions/{id}", s.endSessionHandler)
	s.mux.HandleFunc("GET /healthz", s.healthHandler)
	if cfg.TwilioWebhook != nil {
		s.mux.HandleFunc("POST "+TwilioWebhookPath, cfg.TwilioWebhook)
		slog.Debug("Server Twilio webhook mounted", "path", TwilioWebhookPath)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	slog.Info("BuddyBot API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server ListenAndServe failed", "error", err)
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("BuddyBot API shutting down")
	return s.httpServer.Shutdown(ctx)
}
