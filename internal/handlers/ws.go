package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/beacon/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// client owns one connection. Only its write pump writes to conn; events
// reach the pump through send.
type client struct {
	conn *websocket.Conn
	send chan map[string]any
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, send: make(chan map[string]any, sendBuffer)}
}

// writePump drains send and keeps the connection alive until done closes
// or a write fails.
func (c *client) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.conn.Close()
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.conn.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

// Hub fans refresh events out to the websocket clients of each project.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint]map[*client]bool
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]map[*client]bool),
		upgrader: websocket.Upgrader{
			// The API is served with an open CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Publish queues a refresh for every client of projectID and never waits on
// a connection. A client whose queue is full is dropped.
func (h *Hub) Publish(projectID uint, reason string) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[projectID]))
	for c := range h.clients[projectID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := map[string]any{
		"type":       "refresh",
		"reason":     reason,
		"project_id": projectID,
	}

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("websocket: client too slow, dropping", "project_id", projectID)
			h.remove(projectID, c)
		}
	}
}

// Subscribers returns how many clients are connected for projectID.
func (h *Hub) Subscribers(projectID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

func (h *Hub) add(projectID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[projectID] == nil {
		h.clients[projectID] = make(map[*client]bool)
	}
	h.clients[projectID][c] = true
}

func (h *Hub) remove(projectID uint, c *client) {
	h.mu.Lock()
	if set, exists := h.clients[projectID]; exists {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, projectID)
		}
	}
	h.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[uint]map[*client]bool)
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			if c.conn != nil {
				c.conn.Close()
			}
		}
	}
}

// Serve upgrades an authenticated request and keeps the connection open
// until the client goes away.
func (h *Hub) Serve(ctx *gin.Context) {
	caller, err := utils.GetCaller(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)

	if err != nil {
		slog.Warn("websocket: upgrade failed", "err", err)
		return
	}

	c := newClient(conn)
	projectID := caller.ProjectID

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.send <- map[string]any{
		"type":       "connected",
		"project_id": projectID,
	}
	h.add(projectID, c)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.remove(projectID, c)
		slog.Debug("websocket: connection closed", "project_id", projectID)
	}()

	go c.writePump(done)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket: read failed", "project_id", projectID, "err", err)
			}
			return
		}
	}
}
