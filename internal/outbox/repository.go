package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListUnsentOutboxEvents(ctx context.Context, limit int32) ([]db.OutboxEvent, error)
	MarkOutboxEventSent(ctx context.Context, arg db.MarkOutboxEventSentParams) error
}

// Repository implements outbox data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new outbox repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// ListUnsent returns up to limit pending events in insertion order.
func (r *Repository) ListUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.queries.ListUnsentOutboxEvents(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsent outbox events: %w", err)
	}
	events := make([]Event, len(rows))
	for i, row := range rows {
		events[i] = Event{
			ID:        row.ID,
			MatchID:   row.MatchID,
			EventType: row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
			SentAt:    sqlutil.FromSqlTime(row.SentAt),
		}
	}
	return events, nil
}

// MarkSent records that an event reached the bus.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	err := r.queries.MarkOutboxEventSent(ctx, db.MarkOutboxEventSentParams{
		ID:     id,
		SentAt: sentAt,
	})
	if err != nil {
		return fmt.Errorf("failed to mark outbox event sent: %w", err)
	}
	return nil
}
