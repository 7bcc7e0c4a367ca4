package store

import (
	"context"
	"fmt"
	"time"
)

func (s *SQLiteStore) RecordInbound(ctx context.Context, messageID, sessionID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO inbound_dedup (message_id, session_id, received_at) VALUES (?, ?, ?)`,
		messageID, sessionID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`,
		time.Now().UTC(), messageID,
	); err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}
