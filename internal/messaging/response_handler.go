package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// Responder produces the chat reply for a session. *flow.Engine satisfies it.
type Responder interface {
	HandleMessage(ctx context.Context, sessionID, text string) (models.ChatResult, error)
}

// Deduper records inbound message ids. *store.SQLiteStore, *store.PostgresStore and
// *store.InMemoryDeduper satisfy it.
type Deduper interface {
	RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// DefaultErrorMessage is sent when the responder fails.
const DefaultErrorMessage = "⚠️ Sorry, something went wrong on my side. Could you say that again?"

// ResponseHandler feeds inbound channel messages through the responder and sends
// the reply back to the sender. Each sender gets its own session.
type ResponseHandler struct {
	msgService   Service
	responder    Responder
	deduper      Deduper
	errorMessage string
}

// HandlerOption configures a ResponseHandler.
type HandlerOption func(*ResponseHandler)

// WithDeduper drops inbound messages whose id was already seen.
func WithDeduper(d Deduper) HandlerOption {
	return func(rh *ResponseHandler) { rh.deduper = d }
}

// NewResponseHandler creates a ResponseHandler for the given service and responder.
func NewResponseHandler(msgService Service, responder Responder, opts ...HandlerOption) *ResponseHandler {
	rh := &ResponseHandler{
		msgService:   msgService,
		responder:    responder,
		errorMessage: DefaultErrorMessage,
	}
	for _, opt := range opts {
		opt(rh)
	}
	return rh
}

// SessionID derives the conversation session for a sender on a channel.
func SessionID(channel, canonicalFrom string) string {
	return channel + ":" + canonicalFrom
}

// ProcessResponse handles a single inbound message. Blank messages are ignored.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, msg models.InboundMessage) error {
	canonicalFrom, err := rh.msgService.ValidateAndCanonicalizeRecipient(msg.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", msg.From)
		return fmt.Errorf("invalid sender: %w", err)
	}
	if strings.TrimSpace(msg.Body) == "" {
		slog.Debug("ResponseHandler ignoring blank message", "from", canonicalFrom)
		return nil
	}

	sessionID := SessionID(msg.Channel, canonicalFrom)
	if rh.deduper != nil && msg.ID != "" {
		fresh, err := rh.deduper.RecordInbound(ctx, msg.ID, sessionID)
		if err != nil {
			// The message is still answered when the dedup store is unavailable.
			slog.Error("ResponseHandler dedup check failed", "error", err, "message_id", msg.ID)
		} else if !fresh {
			slog.Info("ResponseHandler dropping redelivered message", "message_id", msg.ID, "session_id", sessionID)
			return nil
		}
	}

	result, err := rh.responder.HandleMessage(ctx, sessionID, msg.Body)
	if err != nil {
		slog.Error("ResponseHandler responder failed", "error", err, "session_id", sessionID)
		if sendErr := rh.msgService.SendMessage(ctx, canonicalFrom, rh.errorMessage); sendErr != nil {
			slog.Error("ResponseHandler failed to send error message", "error", sendErr, "from", canonicalFrom)
		}
		return fmt.Errorf("responder failed: %w", err)
	}

	if err := rh.msgService.SendMessage(ctx, canonicalFrom, result.Reply); err != nil {
		slog.Error("ResponseHandler failed to send reply", "error", err, "from", canonicalFrom)
		return fmt.Errorf("failed to send reply: %w", err)
	}
	if rh.deduper != nil && msg.ID != "" {
		if err := rh.deduper.MarkProcessed(ctx, msg.ID); err != nil {
			slog.Warn("ResponseHandler failed to mark message processed", "error", err, "message_id", msg.ID)
		}
	}
	slog.Info("ResponseHandler replied", "session_id", sessionID, "topic", result.Topic)
	return nil
}

// Start drains the service's inbound channel in a goroutine until it closes or
// ctx is cancelled. The returned channel is closed when processing stops.
func (rh *ResponseHandler) Start(ctx context.Context) <-chan struct{} {
	slog.Info("ResponseHandler starting response processing")
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer slog.Info("ResponseHandler stopped response processing")

		for {
			select {
			case msg, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}
				if err := rh.ProcessResponse(ctx, msg); err != nil {
					slog.Error("ResponseHandler failed to process response", "error", err, "from", msg.From)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
