package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BTreeMap/BuddyBot/internal/twiliowhatsapp"
)

func TestTwilioService_ImplementsService(t *testing.T) {
	var _ Service = (*TwilioService)(nil)
}

func TestTwilioService_ValidateAndCanonicalizeRecipient(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"whatsapp:+15551234567", "15551234567", false},
		{"+1 (555) 123-4567", "15551234567", false},
		{"", "", true},
		{"whatsapp:", "", true},
		{"12345", "", true},
	}
	for _, tt := range tests {
		got, err := svc.ValidateAndCanonicalizeRecipient(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func postWebhook(svc *TwilioService, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/twilio/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rec, req)
	return rec
}

func TestTwilioWebhookHandler_EmitsInbound(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	rec := postWebhook(svc, url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"I feel so sad"}, "MessageSid": {"SM0001"}})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<Response>") {
		t.Errorf("expected TwiML acknowledgement, got %q", rec.Body.String())
	}
	select {
	case msg := <-svc.Responses():
		if msg.ID != "SM0001" || msg.Channel != ChannelTwilio || msg.From != "whatsapp:+15551234567" || msg.Body != "I feel so sad" {
			t.Errorf("unexpected inbound message: %+v", msg)
		}
	default:
		t.Fatal("expected inbound message")
	}
}

func TestTwilioWebhookHandler_MissingFrom(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if rec := postWebhook(svc, url.Values{"Body": {"hi"}}); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTwilioWebhookHandler_RejectsBadSignature(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient(), WithWebhookValidation("token", "https://example.com/twilio/whatsapp"))
	rec := postWebhook(svc, url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestTwilioService_SendAndStop(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)
	ctx := context.Background()
	if err := svc.SendMessage(ctx, "whatsapp:+15551234567", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].To != "15551234567" {
		t.Errorf("unexpected sent messages: %+v", mock.SentMessages)
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if _, ok := <-svc.Responses(); ok {
		t.Error("expected responses channel closed")
	}
	if err := svc.SendMessage(ctx, "15551234567", "draining"); err != nil {
		t.Errorf("send after Stop should still work until Close, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := svc.SendMessage(ctx, "15551234567", "late"); err != ErrServiceStopped {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
	// Webhook after stop still acknowledges but drops the message.
	if rec := postWebhook(svc, url.Values{"From": {"whatsapp:+15551234567"}, "Body": {"hi"}}); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
