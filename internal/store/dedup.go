package store

import (
	"context"
	"sync"
	"time"
)

// Deduper remembers inbound channel message ids so redelivered messages
// (Twilio webhook retries, whatsmeow replays after reconnect) get one reply.
type Deduper interface {
	// RecordInbound stores messageID and reports false if it was already recorded.
	RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error)

	// MarkProcessed stamps the time the reply for messageID went out.
	MarkProcessed(ctx context.Context, messageID string) error
}

var (
	_ Deduper = (*InMemoryDeduper)(nil)
	_ Deduper = (*SQLiteStore)(nil)
	_ Deduper = (*PostgresStore)(nil)
)

// InMemoryDeduper is a process-local Deduper.
type InMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]*time.Time
}

func NewInMemoryDeduper() *InMemoryDeduper {
	return &InMemoryDeduper{seen: make(map[string]*time.Time)}
}

func (d *InMemoryDeduper) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[messageID]; ok {
		return false, nil
	}
	d.seen[messageID] = nil
	return true, nil
}

func (d *InMemoryDeduper) MarkProcessed(ctx context.Context, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	d.seen[messageID] = &now
	return nil
}

// Processed reports whether messageID has been marked processed.
func (d *InMemoryDeduper) Processed(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[messageID] != nil
}
