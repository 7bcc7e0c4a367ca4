package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/BuddyBot/internal/models"
)

// scanArchivedTurns reads every row of a turns query.
func scanArchivedTurns(rows *sql.Rows) ([]models.ArchivedTurn, error) {
	turns := []models.ArchivedTurn{}
	for rows.Next() {
		var t models.ArchivedTurn
		var topic string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserText, &t.BotText, &topic, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn failed: %w", err)
		}
		t.Topic = models.Topic(topic)
		t.Timestamp = t.Timestamp.UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn rows: %w", err)
	}
	return turns, nil
}
