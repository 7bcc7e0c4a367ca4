package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/BuddyBot/internal/flow"
	"github.com/BTreeMap/BuddyBot/internal/models"
	"github.com/BTreeMap/BuddyBot/internal/store"
	"github.com/BTreeMap/BuddyBot/internal/whatsapp"
)

type failingResponder struct{}

func (failingResponder) HandleMessage(ctx context.Context, sessionID, text string) (models.ChatResult, error) {
	return models.ChatResult{}, errors.New("engine unavailable")
}

func newHandler(t *testing.T) (*ResponseHandler, *whatsapp.MockClient, *flow.Engine) {
	t.Helper()
	mockClient := whatsapp.NewMockClient()
	engine := flow.NewEngine(flow.WithSeed(7))
	return NewResponseHandler(NewWhatsAppService(mockClient), engine), mockClient, engine
}

func TestResponseHandler_RepliesThroughService(t *testing.T) {
	handler, mockClient, engine := newHandler(t)
	msg := models.InboundMessage{Channel: ChannelWhatsApp, From: "+1 (555) 123-4567", Body: "hello there"}

	if err := handler.ProcessResponse(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mockClient.SentMessages) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(mockClient.SentMessages))
	}
	if mockClient.SentMessages[0].To != "15551234567" {
		t.Errorf("reply sent to %q, want canonical number", mockClient.SentMessages[0].To)
	}

	sessionID := SessionID(ChannelWhatsApp, "15551234567")
	history := engine.History(sessionID)
	if len(history) != 1 {
		t.Fatalf("expected 1 turn in %s, got %d", sessionID, len(history))
	}
	if history[0].Topic != models.TopicGreeting || history[0].BotText != mockClient.SentMessages[0].Body {
		t.Errorf("unexpected recorded turn: %+v", history[0])
	}
}

func TestResponseHandler_SendersGetSeparateSessions(t *testing.T) {
	handler, _, engine := newHandler(t)
	ctx := context.Background()
	for _, from := range []string{"15550000001", "15550000002", "15550000001"} {
		if err := handler.ProcessResponse(ctx, models.InboundMessage{Channel: ChannelWhatsApp, From: from, Body: "hi"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := len(engine.History(SessionID(ChannelWhatsApp, "15550000001"))); n != 2 {
		t.Errorf("first sender turns = %d, want 2", n)
	}
	if n := len(engine.History(SessionID(ChannelWhatsApp, "15550000002"))); n != 1 {
		t.Errorf("second sender turns = %d, want 1", n)
	}
}

func TestResponseHandler_IgnoresBlankAndInvalid(t *testing.T) {
	handler, mockClient, _ := newHandler(t)
	ctx := context.Background()

	if err := handler.ProcessResponse(ctx, models.InboundMessage{Channel: ChannelWhatsApp, From: "15551234567", Body: "   "}); err != nil {
		t.Errorf("blank message should be ignored, got %v", err)
	}
	if err := handler.ProcessResponse(ctx, models.InboundMessage{Channel: ChannelWhatsApp, From: "abc", Body: "hi"}); err == nil {
		t.Error("expected error for invalid sender")
	}
	if len(mockClient.SentMessages) != 0 {
		t.Errorf("expected no replies, got %d", len(mockClient.SentMessages))
	}
}

func TestResponseHandler_ResponderErrorSendsApology(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	handler := NewResponseHandler(NewWhatsAppService(mockClient), failingResponder{})

	err := handler.ProcessResponse(context.Background(), models.InboundMessage{Channel: ChannelWhatsApp, From: "15551234567", Body: "hi"})
	if err == nil {
		t.Fatal("expected error from failing responder")
	}
	if len(mockClient.SentMessages) != 1 || mockClient.SentMessages[0].Body != DefaultErrorMessage {
		t.Errorf("expected apology message, got %+v", mockClient.SentMessages)
	}
}

func TestResponseHandler_StartDrainsUntilStop(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	handler := NewResponseHandler(svc, flow.NewEngine(flow.WithSeed(1)))

	done := handler.Start(context.Background())
	svc.emit(models.InboundMessage{Channel: ChannelWhatsApp, From: "15551234567", Body: "I love minecraft"})
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop after service closed its channel")
	}
	if len(mockClient.SentMessages) != 1 {
		t.Errorf("expected 1 reply, got %d", len(mockClient.SentMessages))
	}
}

func TestResponseHandler_BufferedMessagesAnsweredBeforeClose(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	svc := NewWhatsAppService(mockClient)
	deduper := store.NewInMemoryDeduper()
	handler := NewResponseHandler(svc, flow.NewEngine(flow.WithSeed(3)), WithDeduper(deduper))

	ids := []string{"3EB0AAA1", "3EB0AAA2", "3EB0AAA3"}
	for _, id := range ids {
		svc.emit(models.InboundMessage{ID: id, Channel: ChannelWhatsApp, From: "15551234567", Body: "tell me about netflix"})
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	<-handler.Start(context.Background())
	if err := svc.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if len(mockClient.SentMessages) != len(ids) {
		t.Errorf("expected %d replies, got %d", len(ids), len(mockClient.SentMessages))
	}
	for _, id := range ids {
		if !deduper.Processed(id) {
			t.Errorf("message %s was recorded but never marked processed", id)
		}
	}
}

func TestResponseHandler_DropsRedeliveredMessages(t *testing.T) {
	mockClient := whatsapp.NewMockClient()
	engine := flow.NewEngine(flow.WithSeed(2))
	deduper := store.NewInMemoryDeduper()
	handler := NewResponseHandler(NewWhatsAppService(mockClient), engine, WithDeduper(deduper))
	ctx := context.Background()

	msg := models.InboundMessage{ID: "3EB0C0FFEE", Channel: ChannelWhatsApp, From: "15551234567", Body: "hey"}
	for i := 0; i < 3; i++ {
		if err := handler.ProcessResponse(ctx, msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(mockClient.SentMessages) != 1 {
		t.Errorf("expected exactly one reply, got %d", len(mockClient.SentMessages))
	}
	if !deduper.Processed("3EB0C0FFEE") {
		t.Error("message should be marked processed")
	}

	// Messages without an id are never deduplicated.
	msg.ID = ""
	if err := handler.ProcessResponse(ctx, msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mockClient.SentMessages) != 2 {
		t.Errorf("expected a second reply, got %d", len(mockClient.SentMessages))
	}
}
