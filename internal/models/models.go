// Package models defines the core data structures for BuddyBot.
//
// It includes conversation turns, chat results, inbound channel messages and the
// JSON envelope used by the HTTP API. These types are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for an incoming chat message
	MaxMessageLength = 4096
	// MaxSessionIDLength defines the maximum allowed length for a session identifier
	MaxSessionIDLength = 128
)

// Error variables for better error handling and testability
var (
	ErrEmptySessionID       = errors.New("session id cannot be empty")
	ErrSessionIDTooLong     = errors.New("session id exceeds maximum length")
	ErrEmptyText            = errors.New("text cannot be empty")
	ErrTextTooLong          = errors.New("text exceeds maximum length")
	ErrUnknownTopic         = errors.New("unknown topic")
	ErrEmptyTopicTemplates  = errors.New("topic has no response templates")
	ErrEmptyRecipient       = errors.New("recipient cannot be empty")
	ErrSessionNotFound      = errors.New("session not found")
	ErrArchiveNotConfigured = errors.New("transcript archive not configured")
)

// Turn is one exchange between the user and the bot.
type Turn struct {
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
	Topic     Topic     `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatResult is what the engine hands back to the presentation layer.
type ChatResult struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Topic     Topic  `json:"topic"`
}

// ArchivedTurn is a Turn as stored by a transcript archive.
type ArchivedTurn struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Turn
}

// ChatRequest is the payload for posting a message into a session.
type ChatRequest struct {
	Text string `json:"text"`
}

// Validate performs validation on a ChatRequest.
// Blank text is rejected here because the engine itself does not special-case it.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if len(r.Text) > MaxMessageLength {
		return ErrTextTooLong
	}
	return nil
}

// ValidateSessionID checks a caller-supplied session identifier.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrEmptySessionID
	}
	if len(id) > MaxSessionIDLength {
		return ErrSessionIDTooLong
	}
	return nil
}

// SessionInfo describes a newly started session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// InboundMessage represents an incoming chat message from a messaging channel.
type InboundMessage struct {
	ID      string `json:"id,omitempty"` // channel message id, used for redelivery dedup
	Channel string `json:"channel"`
	From    string `json:"from"`
	Body    string `json:"body"`
	Time    int64  `json:"time"`
}

// APIStatus is the status field of every JSON envelope.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse is the JSON envelope returned by every HTTP endpoint.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success wraps result in an ok envelope.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage wraps result in an ok envelope with a human readable message.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error builds an error envelope.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
