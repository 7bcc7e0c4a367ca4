// Package messaging connects chat channels (WhatsApp via whatsmeow or Twilio) to the BuddyBot engine.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// Constants for service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for the inbound channel
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout bounds how long an inbound message may wait for buffer space
	DefaultChannelTimeout = 1 * time.Second
	// MinPhoneDigits is the shortest accepted phone number
	MinPhoneDigits = 6
)

// ErrServiceStopped is returned when sending through a closed service.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable chat channel.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., event subscription).
	Start(ctx context.Context) error

	// Stop stops accepting inbound messages and closes the Responses channel.
	// Replies can still be sent until Close.
	Stop() error

	// Close rejects further sends. Call it after the inbound channel has been drained.
	Close() error

	// Responses returns a channel of incoming chat messages.
	Responses() <-chan models.InboundMessage
}

// canonicalizePhone strips everything but digits and enforces a minimum length.
func canonicalizePhone(service, recipient string) (string, error) {
	if recipient == "" {
		return "", models.ErrEmptyRecipient
	}
	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	if canonical != recipient {
		slog.Debug("Recipient canonicalized", "service", service, "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
