package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const insertOutboxEvent = `
INSERT INTO outbox_events (id, match_id, event_type, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertOutboxEventParams struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

func (q *Queries) InsertOutboxEvent(ctx context.Context, arg InsertOutboxEventParams) error {
	_, err := q.db.ExecContext(ctx, insertOutboxEvent,
		arg.ID, arg.MatchID, arg.EventType, arg.Payload, arg.CreatedAt)
	return err
}

const listUnsentOutboxEvents = `
SELECT id, match_id, event_type, payload, created_at, sent_at
FROM outbox_events
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (q *Queries) ListUnsentOutboxEvents(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx, listUnsentOutboxEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OutboxEvent
	for rows.Next() {
		var i OutboxEvent
		if err := rows.Scan(&i.ID, &i.MatchID, &i.EventType, &i.Payload, &i.CreatedAt, &i.SentAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const markOutboxEventSent = `
UPDATE outbox_events SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL
`

type MarkOutboxEventSentParams struct {
	ID     uuid.UUID
	SentAt time.Time
}

func (q *Queries) MarkOutboxEventSent(ctx context.Context, arg MarkOutboxEventSentParams) error {
	_, err := q.db.ExecContext(ctx, markOutboxEventSent, arg.ID, arg.SentAt)
	return err
}
