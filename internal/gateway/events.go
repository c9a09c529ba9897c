package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// MatchEvent is the envelope broadcast to WebSocket clients.
type MatchEvent struct {
	ID        string          `json:"id"`
	MatchID   string          `json:"match_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of match event
type EventType string

const (
	EventTypeMatchResolved EventType = "MatchResolved"
)

// MatchResolvedPayload mirrors the outbox payload written when a match
// resolves. Clients use it to refresh in-match views.
type MatchResolvedPayload struct {
	MatchID       uuid.UUID   `json:"match_id"`
	WinnerGroupID uuid.UUID   `json:"winner_group_id"`
	LoserGroupID  uuid.UUID   `json:"loser_group_id"`
	WinnerSide    models.Side `json:"winner_side"`
	MapsPlayed    int         `json:"maps_played"`
	Season        int         `json:"season"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *MatchEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeMatchResolved:
		var payload MatchResolvedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	default:
		return nil, nil // Unknown event type
	}
}
