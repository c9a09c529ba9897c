package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// HubConfig tunes the WebSocket fanout.
type HubConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1024,
		SendBuffer:     16,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// Hub fans resolved-match events out to the clients watching each match.
// Attach, detach and broadcast go through the mutex directly; there is no
// central loop, so one match's traffic never queues behind another's.
type Hub struct {
	mu       sync.Mutex
	watchers map[uuid.UUID]map[*client]struct{}

	upgrader websocket.Upgrader
	cfg      HubConfig
}

// client is one WebSocket subscriber, pinned to a single match. The protocol
// is server to client only; anything the client sends is discarded.
type client struct {
	hub     *Hub
	conn    *websocket.Conn
	matchID uuid.UUID
	userID  string
	send    chan []byte
}

func NewHub(cfg HubConfig) *Hub {
	return &Hub{
		watchers: make(map[uuid.UUID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		cfg: cfg,
	}
}

// Run blocks until ctx is done, then hangs up every watcher.
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("websocket hub started")
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for matchID, clients := range h.watchers {
		for c := range clients {
			close(c.send)
		}
		delete(h.watchers, matchID)
	}
	log.Info().Msg("websocket hub shut down")
}

// Subscribe upgrades the request and registers the caller as a watcher of
// matchID until the connection drops.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, userID string, matchID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &client{
		hub:     h,
		conn:    conn,
		matchID: matchID,
		userID:  userID,
		send:    make(chan []byte, h.cfg.SendBuffer),
	}
	h.attach(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("user_id", userID).
		Str("match_id", matchID.String()).
		Msg("watcher subscribed")
	return nil
}

// Broadcast delivers the event to every watcher of matchID. A watcher whose
// buffer is full misses this event; dead connections are reaped by the ping
// timeout, not here.
func (h *Hub) Broadcast(matchID uuid.UUID, event *MatchEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends never block (buffered channel, default arm), so delivering under
	// the lock is cheap and means a send can never race a detach closing the
	// channel.
	h.mu.Lock()
	delivered := 0
	for c := range h.watchers[matchID] {
		select {
		case c.send <- payload:
			delivered++
		default:
			log.Warn().
				Str("user_id", c.userID).
				Str("match_id", matchID.String()).
				Msg("watcher buffer full, event dropped")
		}
	}
	h.mu.Unlock()

	log.Debug().
		Str("event_type", string(event.Type)).
		Str("match_id", matchID.String()).
		Int("delivered", delivered).
		Msg("event broadcast")
}

// WatcherCounts returns the number of watchers per match.
func (h *Hub) WatcherCounts() map[uuid.UUID]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make(map[uuid.UUID]int, len(h.watchers))
	for matchID, clients := range h.watchers {
		counts[matchID] = len(clients)
	}
	return counts
}

func (h *Hub) attach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[c.matchID] == nil {
		h.watchers[c.matchID] = make(map[*client]struct{})
	}
	h.watchers[c.matchID][c] = struct{}{}
}

// detach removes a watcher and closes its send channel exactly once; both
// pumps call it on exit.
func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.watchers[c.matchID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.watchers, c.matchID)
	}
	log.Info().
		Str("user_id", c.userID).
		Str("match_id", c.matchID.String()).
		Msg("watcher unsubscribed")
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.detach(c)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only services control frames; data frames from the client are
// read and thrown away to keep the connection draining.
func (c *client) readPump() {
	defer func() {
		c.hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.cfg.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("user_id", c.userID).
					Msg("unexpected websocket close")
			}
			return
		}
	}
}
