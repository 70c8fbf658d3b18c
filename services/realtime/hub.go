package realtime

import (
	"sync"

	"consultline/models"

	"go.uber.org/zap"
)

// Event is the frame pushed to session watchers.
type Event struct {
	Type    string         `json:"type"`
	Session models.Session `json:"session"`
}

const EventSession = "session"

// Hub fans session snapshots out to the websocket clients watching them.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*Client]struct{} // key: session ID
	logger   *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		watchers: make(map[string]map[*Client]struct{}),
		logger:   logger,
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[c.SessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.watchers[c.SessionID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.watchers[c.SessionID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.watchers, c.SessionID)
	}
}

// Watchers returns the number of clients watching sessionID.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

// Publish queues s for every watcher of its session. It never blocks; a
// watcher whose buffer is full misses the update.
func (h *Hub) Publish(s models.Session) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.watchers[s.ID]))
	for c := range h.watchers[s.ID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(s) {
			h.logger.Warn("Hub: dropping update for slow watcher",
				zap.String("sessionID", s.ID), zap.String("userID", c.UserID))
		}
	}
}

// Close disconnects every watcher.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Client
	for _, set := range h.watchers {
		for c := range set {
			all = append(all, c)
		}
	}
	h.watchers = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
