package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
	"github.com/BTreeMap/BuddyBot/internal/twiliowhatsapp"
	twilioclient "github.com/twilio/twilio-go/client"
)

// ChannelTwilio names sessions opened through the Twilio webhook.
const ChannelTwilio = "twilio"

// emptyTwiML acknowledges a webhook without sending a message from Twilio itself.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// TwilioService implements Service on top of the Twilio REST API and its inbound webhook.
type TwilioService struct {
	client     twiliowhatsapp.Sender
	responses  chan models.InboundMessage
	mu         sync.RWMutex
	stopped    bool
	closed     bool
	validator  *twilioclient.RequestValidator
	webhookURL string
}

// TwilioOption configures a TwilioService.
type TwilioOption func(*TwilioService)

// WithWebhookValidation verifies the X-Twilio-Signature header of inbound requests
// against the public webhook URL Twilio was configured with.
func WithWebhookValidation(authToken, publicURL string) TwilioOption {
	return func(s *TwilioService) {
		v := twilioclient.NewRequestValidator(authToken)
		s.validator = &v
		s.webhookURL = publicURL
	}
}

// NewTwilioService creates a new TwilioService.
func NewTwilioService(client twiliowhatsapp.Sender, opts ...TwilioOption) *TwilioService {
	s := &TwilioService{
		client:    client,
		responses: make(chan models.InboundMessage, DefaultChannelBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAndCanonicalizeRecipient strips the "whatsapp:" prefix and all non-digits.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone("TwilioService", recipient)
}

// Start is a no-op; inbound traffic arrives through TwilioWebhookHandler.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes the inbound channel. Sends keep working until Close.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.responses)
	slog.Info("TwilioService stopped accepting inbound messages")
	return nil
}

// Close rejects further sends.
func (s *TwilioService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SendMessage sends a message via Twilio.
func (s *TwilioService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrServiceStopped
	}

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("TwilioService SendMessage validation error", "error", err, "to", to)
		return err
	}
	return s.client.SendMessage(ctx, canonicalTo, body)
}

// Responses returns the channel of inbound webhook messages.
func (s *TwilioService) Responses() <-chan models.InboundMessage {
	return s.responses
}

// TwilioWebhookHandler handles inbound Twilio webhook requests and emits them on Responses().
func (s *TwilioService) TwilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if s.validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for k := range r.PostForm {
			params[k] = r.PostForm.Get(k)
		}
		if !s.validator.Validate(s.webhookURL, params, r.Header.Get("X-Twilio-Signature")) {
			slog.Warn("Twilio webhook signature rejected", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" {
		slog.Warn("Twilio webhook missing From field")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	slog.Info("Inbound WhatsApp message from Twilio", "from", from, "body_length", len(body))
	s.safeEmitResponse(models.InboundMessage{
		ID:      r.FormValue("MessageSid"),
		Channel: ChannelTwilio,
		From:    from,
		Body:    body,
		Time:    time.Now().Unix(),
	})

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, emptyTwiML)
}

// safeEmitResponse pushes an inbound message unless the service is stopped.
func (s *TwilioService) safeEmitResponse(msg models.InboundMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn("TwilioService dropping inbound message (service stopped)", "from", msg.From)
		return
	}
	select {
	case s.responses <- msg:
		slog.Debug("TwilioService emitted inbound message", "from", msg.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService responses channel blocked, dropping message", "from", msg.From)
	}
}
