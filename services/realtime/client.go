package realtime

import (
	"sync"
	"time"

	"consultline/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Client is one websocket watching one session.
type Client struct {
	SessionID string
	UserID    string

	conn      *websocket.Conn
	send      chan models.Session
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) enqueue(s models.Session) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- s:
		return true
	default:
		return false
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Serve registers conn as a watcher of snapshot's session, writes snapshot
// and then every published update until the session ends or the peer goes
// away. It blocks until the connection is closed.
func (h *Hub) Serve(conn *websocket.Conn, userID string, snapshot models.Session) {
	c := &Client{
		SessionID: snapshot.ID,
		UserID:    userID,
		conn:      conn,
		send:      make(chan models.Session, sendBuffer),
		done:      make(chan struct{}),
	}
	h.add(c)
	defer func() {
		h.remove(c)
		c.Close()
	}()
	c.enqueue(snapshot)

	go c.writePump(h.logger)
	c.readPump()
}

// readPump discards inbound frames and keeps the read deadline fresh.
func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump serializes writes. Snapshots older than one already sent are
// skipped, which covers an update racing the initial snapshot.
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	var last int64 = -1
	for {
		select {
		case <-c.done:
			return
		case s := <-c.send:
			if s.Version <= last {
				continue
			}
			last = s.Version
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(Event{Type: EventSession, Session: s}); err != nil {
				logger.Debug("Hub: write failed", zap.String("sessionID", c.SessionID), zap.Error(err))
				return
			}
			if s.Phase == models.PhaseEnded {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
