package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// sessionID reads and validates the {id} path segment, writing a 400 on failure.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if err := models.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := s.newID()
	info, err := s.engine.StartSession(id)
	if err != nil {
		slog.Error("Server.createSessionHandler: failed to start session", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start session"))
		return
	}
	slog.Debug("Server.createSessionHandler: session created", "session_id", id)
	writeJSONResponse(w, http.StatusCreated, models.Success(info))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.messageHandler: validation failed", "error", err, "session_id", id)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.HandleMessage(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, models.ErrEmptySessionID) || errors.Is(err, models.ErrSessionIDTooLong) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		slog.Error("Server.messageHandler: engine failed", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to handle message"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if !s.engine.HasSession(id) {
		writeError(w, http.StatusNotFound, models.ErrSessionNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(s.engine.History(id)))
}

func (s *Server) transcriptHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if s.archive == nil {
		writeError(w, http.StatusNotImplemented, models.ErrArchiveNotConfigured)
		return
	}
	turns, err := s.archive.ListTurns(r.Context(), id)
	if err != nil {
		slog.Error("Server.transcriptHandler: failed to list turns", "error", err, "session_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to read transcript"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(turns))
}

func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if !s.engine.EndSession(id) {
		writeError(w, http.StatusNotFound, models.ErrSessionNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session ended", nil))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Service is healthy", nil))
}
