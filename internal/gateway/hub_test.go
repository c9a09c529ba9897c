package gateway

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(hub *Hub, matchID uuid.UUID, buffer int) *client {
	c := &client{
		hub:     hub,
		matchID: matchID,
		userID:  "watcher",
		send:    make(chan []byte, buffer),
	}
	hub.attach(c)
	return c
}

func receiveEvent(t *testing.T, c *client) MatchEvent {
	t.Helper()
	select {
	case raw := <-c.send:
		var event MatchEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		return event
	default:
		t.Fatal("watcher received no event")
		return MatchEvent{}
	}
}

func TestBroadcastReachesOnlyMatchWatchers(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	matchA, matchB := uuid.New(), uuid.New()
	first := newTestWatcher(hub, matchA, 1)
	second := newTestWatcher(hub, matchA, 1)
	other := newTestWatcher(hub, matchB, 1)

	hub.Broadcast(matchA, &MatchEvent{
		ID:      "evt-1",
		MatchID: matchA.String(),
		Type:    EventTypeMatchResolved,
	})

	for _, c := range []*client{first, second} {
		event := receiveEvent(t, c)
		assert.Equal(t, EventTypeMatchResolved, event.Type)
		assert.Equal(t, matchA.String(), event.MatchID)
	}
	assert.Empty(t, other.send)
}

func TestBroadcastDropsEventWhenWatcherBufferFull(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	matchID := uuid.New()
	slow := newTestWatcher(hub, matchID, 1)

	hub.Broadcast(matchID, &MatchEvent{ID: "evt-1", MatchID: matchID.String(), Type: EventTypeMatchResolved})
	hub.Broadcast(matchID, &MatchEvent{ID: "evt-2", MatchID: matchID.String(), Type: EventTypeMatchResolved})

	// The second event is dropped, the watcher stays attached.
	event := receiveEvent(t, slow)
	assert.Equal(t, "evt-1", event.ID)
	assert.Empty(t, slow.send)
	assert.Equal(t, map[uuid.UUID]int{matchID: 1}, hub.WatcherCounts())
}

func TestDetachStopsDeliveryAndIsIdempotent(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	matchID := uuid.New()
	watcher := newTestWatcher(hub, matchID, 1)

	hub.detach(watcher)
	hub.detach(watcher)

	hub.Broadcast(matchID, &MatchEvent{ID: "evt-1", MatchID: matchID.String(), Type: EventTypeMatchResolved})

	_, open := <-watcher.send
	assert.False(t, open, "send channel closed on detach")
	assert.Empty(t, hub.WatcherCounts())
}

func TestWatcherCounts(t *testing.T) {
	hub := NewHub(DefaultHubConfig())
	matchA, matchB := uuid.New(), uuid.New()
	newTestWatcher(hub, matchA, 1)
	newTestWatcher(hub, matchA, 1)
	extra := newTestWatcher(hub, matchB, 1)

	assert.Equal(t, map[uuid.UUID]int{matchA: 2, matchB: 1}, hub.WatcherCounts())

	hub.detach(extra)
	assert.Equal(t, map[uuid.UUID]int{matchA: 2}, hub.WatcherCounts())
}
