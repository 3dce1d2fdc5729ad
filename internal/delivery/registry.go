// Package delivery implements the C8 delivery engine: a process-local
// WebSocket connection registry with immediate best-effort delivery,
// plus the outbox worker that guarantees eventual at-least-once
// delivery per adapter.
package delivery

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// heartbeatInterval is how often the registry pings every connection
// and drops any that didn't pong since the last round.
const heartbeatInterval = 30 * time.Second

// conn wraps a websocket connection with its last-pong timestamp.
type conn struct {
	ws      *websocket.Conn
	lastPong time.Time
	mu      sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Registry maps recipient identities to their active connections.
// Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	connections map[string][]*conn
	logger      *slog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string][]*conn),
		logger:      slog.Default().With("component", "delivery_registry"),
	}
}

// Register adds an authenticated connection for recipientID. The
// caller is responsible for having authenticated the upgrade request
// before calling this (reject with 401 otherwise, per spec.md §4.7).
func (r *Registry) Register(recipientID string, ws *websocket.Conn) {
	c := &conn{ws: ws, lastPong: time.Now()}
	ws.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return nil
	})

	r.mu.Lock()
	r.connections[recipientID] = append(r.connections[recipientID], c)
	r.mu.Unlock()
}

// Unregister removes a connection, e.g. on close.
func (r *Registry) Unregister(recipientID string, ws *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.connections[recipientID]
	for i, c := range conns {
		if c.ws == ws {
			r.connections[recipientID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.connections[recipientID]) == 0 {
		delete(r.connections, recipientID)
	}
}

// CloseAll sends a close frame with code and reason to every
// registered connection and clears the registry, used on daemon
// shutdown per spec.md §5.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, conns := range r.connections {
		for _, c := range conns {
			c.mu.Lock()
			_ = c.ws.WriteMessage(websocket.CloseMessage, msg)
			c.ws.Close()
			c.mu.Unlock()
		}
	}
	r.connections = make(map[string][]*conn)
}

// DeliverToUser sends payload as a JSON frame to every active
// connection for recipientID. Non-blocking best-effort: a write
// failure on one connection does not affect the others.
func (r *Registry) DeliverToUser(recipientID string, payload any) (delivered bool, connectionCount int) {
	r.mu.RLock()
	conns := append([]*conn(nil), r.connections[recipientID]...)
	r.mu.RUnlock()

	connectionCount = len(conns)
	for _, c := range conns {
		if err := c.writeJSON(payload); err != nil {
			r.logger.Warn("delivery write failed", "recipientId", recipientID, "error", err)
			continue
		}
		delivered = true
	}
	return delivered, connectionCount
}

// Heartbeat runs until stop is closed, pinging every connection every
// heartbeatInterval and dropping any that haven't ponged since the
// prior round.
func (r *Registry) Heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.pingAll()
		}
	}
}

func (r *Registry) pingAll() {
	cutoff := time.Now().Add(-heartbeatInterval)

	r.mu.Lock()
	defer r.mu.Unlock()

	for recipientID, conns := range r.connections {
		var alive []*conn
		for _, c := range conns {
			c.mu.Lock()
			stale := c.lastPong.Before(cutoff)
			c.mu.Unlock()
			if stale {
				c.ws.Close()
				continue
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.ws.Close()
				continue
			}
			alive = append(alive, c)
		}
		if len(alive) == 0 {
			delete(r.connections, recipientID)
		} else {
			r.connections[recipientID] = alive
		}
	}
}
