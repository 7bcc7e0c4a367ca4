package twiliowhatsapp

import (
	"context"
	"errors"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	if err := mock.SendMessage(ctx, "12345", "Hello Test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}
	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}
}

func TestMockClient_Error(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("boom")
	if err := mock.SendMessage(context.Background(), "1", "x"); err == nil {
		t.Error("expected configured error")
	}
	if len(mock.SentMessages) != 0 {
		t.Error("failed sends must not be recorded")
	}
}

func TestWhatsappAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"15551234567", "whatsapp:+15551234567"},
		{"+15551234567", "whatsapp:+15551234567"},
		{"whatsapp:+15551234567", "whatsapp:+15551234567"},
		{" whatsapp:15551234567 ", "whatsapp:+15551234567"},
		{"\t+15551234567\n", "whatsapp:+15551234567"},
		{"whatsapp: +15551234567", "whatsapp:+15551234567"},
	}
	for _, tt := range tests {
		if got := whatsappAddress(tt.in); got != tt.want {
			t.Errorf("whatsappAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(WithFromWhats("+1555")); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without from number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("15550000000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+15550000000" {
		t.Errorf("fromWhats = %q", c.fromWhats)
	}
}

func TestNewClient_PaddedFromNumberFromEnv(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", " whatsapp:+15550000000\n")
	c, err := NewClient()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+15550000000" {
		t.Errorf("fromWhats = %q, want whatsapp:+15550000000", c.fromWhats)
	}
}
