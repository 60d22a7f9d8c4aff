// Package gateway serves the REST API and the WebSocket stream of scan
// snapshots. It is a thin read layer: every handler reads the scan
// cache or the store, none of them compute signals.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ironclad/internal/model"
)

// Hub manages WebSocket clients and fans scan snapshots out to them.
// It satisfies the scanner's SnapshotPublisher port, so every completed
// sweep reaches connected clients without polling.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	latest  json.RawMessage // last envelope, replayed to new clients
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

type envelope struct {
	Channel string         `json:"channel"`
	Signals []model.Signal `json:"signals"`
	TS      string         `json:"ts"`
}

// PublishSignals broadcasts one completed scan to every client. Slow
// clients drop the frame rather than blocking the scan loop.
func (h *Hub) PublishSignals(_ context.Context, signals []model.Signal, at time.Time) error {
	data, err := json.Marshal(envelope{
		Channel: "signals",
		Signals: signals,
		TS:      at.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.latest = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// client too slow, skip this frame
		}
	}
	h.mu.Unlock()
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	latest := h.latest
	h.mu.Unlock()
	if latest != nil {
		c.send <- latest
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// client is one WebSocket peer.
type client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// HandleConn owns the connection for its lifetime.
func (h *Hub) HandleConn(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 16), hub: h}
	h.register(c)
	go c.writePump()
	c.readPump()
}

func (c *client) writePump() {
	ping := time.NewTicker(30 * time.Second)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// notice the peer going away.
func (c *client) readPump() {
	defer c.hub.unregister(c)
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[gateway] ws read: %v", err)
			}
			return
		}
	}
}
