package models

import (
	"strings"
	"testing"
)

func TestIsValidTopic(t *testing.T) {
	for _, topic := range AllTopics {
		if !IsValidTopic(topic) {
			t.Errorf("expected %q to be valid", topic)
		}
	}
	if IsValidTopic(Topic("weather")) {
		t.Error("expected unknown topic to be invalid")
	}
	if len(AllTopics) != 9 {
		t.Errorf("expected 9 topics, got %d", len(AllTopics))
	}
}

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"valid", "hello there", nil},
		{"empty", "", ErrEmptyText},
		{"blank", "   \t", ErrEmptyText},
		{"too long", strings.Repeat("a", MaxMessageLength+1), ErrTextTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ChatRequest{Text: tt.text}
			if got := req.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID(""); err != ErrEmptySessionID {
		t.Errorf("expected ErrEmptySessionID, got %v", err)
	}
	if err := ValidateSessionID(strings.Repeat("x", MaxSessionIDLength+1)); err != ErrSessionIDTooLong {
		t.Errorf("expected ErrSessionIDTooLong, got %v", err)
	}
	if err := ValidateSessionID("session_abc123"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAPIResponseEnvelopes(t *testing.T) {
	ok := SuccessWithMessage("done", 42)
	if ok.Status != string(APIStatusOK) || ok.Message != "done" || ok.Result != 42 {
		t.Errorf("unexpected success response: %+v", ok)
	}
	e := Error("boom")
	if e.Status != string(APIStatusError) || e.Message != "boom" || e.Result != nil {
		t.Errorf("unexpected error response: %+v", e)
	}
}
