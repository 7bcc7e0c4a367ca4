package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
	"github.com/BTreeMap/BuddyBot/internal/whatsapp"
	"go.mau.fi/whatsmeow/types/events"
)

// ChannelWhatsApp names sessions opened through the whatsmeow client.
const ChannelWhatsApp = "whatsapp"

// WhatsAppService implements Service using the Whatsmeow-based whatsapp client.
type WhatsAppService struct {
	client    whatsapp.WhatsAppSender
	waClient  *whatsapp.Client // set when client is the real whatsmeow wrapper
	responses chan models.InboundMessage
	mu        sync.RWMutex
	stopped   bool
	closed    bool
	handlerID uint32
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given WhatsAppSender.
func NewWhatsAppService(client whatsapp.WhatsAppSender) *WhatsAppService {
	service := &WhatsAppService{
		client:    client,
		responses: make(chan models.InboundMessage, DefaultChannelBufferSize),
	}
	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}
	return service
}

// ValidateAndCanonicalizeRecipient reduces a phone number or JID user part to digits.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone("WhatsAppService", recipient)
}

// Start subscribes to whatsmeow events when a live client is available.
func (s *WhatsAppService) Start(ctx context.Context) error {
	slog.Debug("WhatsAppService Start invoked")
	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Debug("WhatsAppService no full client available, skipping event handling (likely mock)")
		return nil
	}
	s.handlerID = s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		default:
			slog.Debug("WhatsAppService ignoring event type", "type", getEventType(v))
		}
	})
	slog.Info("WhatsAppService event handler registered")
	return nil
}

// Stop unsubscribes from events and closes the inbound channel. Sends keep working
// until Close so buffered messages can still be answered.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	if s.waClient != nil && s.waClient.GetClient() != nil {
		s.waClient.GetClient().RemoveEventHandler(s.handlerID)
	}
	close(s.responses)
	slog.Info("WhatsAppService stopped accepting inbound messages")
	return nil
}

// Close rejects further sends.
func (s *WhatsAppService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SendMessage sends a text reply.
func (s *WhatsAppService) SendMessage(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrServiceStopped
	}

	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		slog.Error("WhatsAppService SendMessage validation error", "error", err, "to", to)
		return err
	}
	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		slog.Error("WhatsAppService SendMessage error", "error", err, "to", canonicalTo)
		return err
	}
	slog.Debug("WhatsAppService message sent", "to", canonicalTo, "body_length", len(body))
	return nil
}

// Responses returns a channel of incoming messages.
func (s *WhatsAppService) Responses() <-chan models.InboundMessage {
	return s.responses
}

// handleIncomingMessage forwards one-to-one text messages into the inbound channel.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil || evt.Info.IsFromMe || evt.Info.IsGroup {
		return
	}

	var messageText string
	if evt.Message.Conversation != nil {
		messageText = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		messageText = *evt.Message.ExtendedTextMessage.Text
	} else {
		slog.Debug("WhatsAppService ignoring non-text message", "from", evt.Info.Sender.String())
		return
	}

	s.emit(models.InboundMessage{
		ID:      evt.Info.ID,
		Channel: ChannelWhatsApp,
		From:    evt.Info.Sender.User,
		Body:    messageText,
		Time:    evt.Info.Timestamp.Unix(),
	})
}

func (s *WhatsAppService) emit(msg models.InboundMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		slog.Warn("WhatsAppService dropping inbound message (service stopped)", "from", msg.From)
		return
	}
	select {
	case s.responses <- msg:
		slog.Debug("WhatsAppService incoming message forwarded", "from", msg.From, "body_length", len(msg.Body))
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService responses channel blocked, dropping message", "from", msg.From, "timeout", DefaultChannelTimeout)
	}
}

// getEventType returns a string representation of the event type for logging
func getEventType(evt interface{}) string {
	switch evt.(type) {
	case *events.Message:
		return "Message"
	case *events.Receipt:
		return "Receipt"
	case *events.Presence:
		return "Presence"
	case *events.Connected:
		return "Connected"
	case *events.Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}
