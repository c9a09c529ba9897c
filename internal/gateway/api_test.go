package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/report"
)

func TestServiceErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"group not found", group.ErrGroupNotFound, http.StatusNotFound},
		{"member not found", group.ErrMemberNotFound, http.StatusNotFound},
		{"match not found", match.ErrMatchNotFound, http.StatusNotFound},
		{"already queued", group.ErrUserAlreadyQueued, http.StatusConflict},
		{"group full", group.ErrGroupFull, http.StatusConflict},
		{"group inactive", group.ErrGroupInactive, http.StatusConflict},
		{"group paired", group.ErrGroupPaired, http.StatusConflict},
		{"already resolved", report.ErrAlreadyResolved, http.StatusConflict},
		{"pairing precondition", match.ErrPairingPrecondition, http.StatusUnprocessableEntity},
		{"invalid winners", report.ErrInvalidWinners, http.StatusUnprocessableEntity},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondServiceError(rec, fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestServiceErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	respondServiceError(rec, fmt.Errorf("pq: connection refused"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body.Error)
}

func TestParseEventPayloadMatchResolved(t *testing.T) {
	payload := MatchResolvedPayload{
		MatchID:       uuid.New(),
		WinnerGroupID: uuid.New(),
		LoserGroupID:  uuid.New(),
		WinnerSide:    models.SideAlpha,
		MapsPlayed:    5,
		Season:        3,
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	event := &MatchEvent{
		ID:        uuid.New().String(),
		MatchID:   payload.MatchID.String(),
		Type:      EventTypeMatchResolved,
		Timestamp: time.Now(),
		Data:      data,
	}

	parsed, err := ParseEventPayload(event)
	require.NoError(t, err)
	assert.Equal(t, payload, parsed)
}

func TestParseEventPayloadUnknownType(t *testing.T) {
	parsed, err := ParseEventPayload(&MatchEvent{Type: EventType("Mystery")})
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/groups", jsonBody(t, map[string]any{
		"user_id": uuid.New().String(),
		"extra":   true,
	}))

	var req createGroupRequest
	assert.Error(t, decodeJSON(r, &req))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
