package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

func TestSequentialIDs(t *testing.T) {
	next := SequentialIDs()
	if a, b := next(), next(); a != "session_test_1" || b != "session_test_2" {
		t.Errorf("unexpected ids %q, %q", a, b)
	}
}

func TestNewTestEngine_UsesFixedClockAndArchive(t *testing.T) {
	_, engine, archive := NewTestServer()
	if _, err := engine.HandleMessage(context.Background(), "s", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	turns, err := archive.ListTurns(context.Background(), "s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 1 || !turns[0].Timestamp.Equal(FixedTime) {
		t.Errorf("unexpected archived turns: %+v", turns)
	}
}

func TestDoAndDecodeEnvelope(t *testing.T) {
	server, _, _ := NewTestServer()
	rr := Do(t, server.Handler(), http.MethodPost, "/sessions", nil)
	AssertHTTPStatus(t, http.StatusCreated, rr.Code, "create session")

	var info models.SessionInfo
	DecodeEnvelope(t, rr, string(models.APIStatusOK), &info)
	if info.SessionID != "session_test_1" {
		t.Errorf("unexpected session id %q", info.SessionID)
	}
}

func TestMustMarshalRoundTrip(t *testing.T) {
	var got models.ChatRequest
	MustUnmarshalJSON(t, MustMarshalJSON(t, models.ChatRequest{Text: "hi"}), &got)
	if got.Text != "hi" {
		t.Errorf("unexpected text %q", got.Text)
	}
}
