// Package hub tracks relay connections and broadcasts chat events to joined members.
package hub

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/protocol"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	username string // guarded by Hub.mu
	mu       sync.Mutex
}

// Hub manages all relay connections. Every broadcast passes through one
// channel drained by Run, so all members observe the same event order.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Broadcast channel of encoded frames for joined members
	broadcast chan []byte

	sendBuffer int
	log        *slog.Logger
	now        func() time.Time

	// seq orders membership changes with the announcements they produce.
	seq sync.Mutex
	mu  sync.RWMutex
}

// NewHub creates a new Hub. sendBuffer is the per-connection outbound queue length.
func NewHub(log *slog.Logger, sendBuffer int) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		broadcast:   make(chan []byte, 256),
		sendBuffer:  sendBuffer,
		log:         log,
		now:         time.Now,
	}
}

// Run delivers broadcasts until done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case data := <-h.broadcast:
			h.deliver(data)
		case <-done:
			return
		}
	}
}

func (h *Hub) deliver(data []byte) {
	var slow []*Connection

	h.mu.RLock()
	for _, conn := range h.connections {
		if conn.username == "" {
			continue
		}
		select {
		case conn.Send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		// Buffer full, drop the member
		h.log.Warn("Connection buffer full, closing", "connection", conn.ID)
		go h.Leave(conn)
	}
}

// NewConnection wraps a WebSocket connection.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, h.sendBuffer),
	}
}

// Register adds a connection. It receives nothing until it joins.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	h.log.Debug("Connection registered", "connection", conn.ID)
}

// Join names a registered connection and announces it. It returns false if the
// connection is unknown or already joined.
func (h *Hub) Join(conn *Connection, username string) bool {
	h.seq.Lock()
	defer h.seq.Unlock()

	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; !ok || conn.username != "" {
		h.mu.Unlock()
		return false
	}
	conn.username = username
	members := h.membersLocked()
	h.mu.Unlock()

	h.log.Info("Member joined", "username", username, "connection", conn.ID)
	h.announce(domain.NewJoined(username, fmt.Sprintf("%s joined the chat", username), h.now()))
	h.announce(domain.NewPresenceSnapshot(members))
	return true
}

// Leave removes a connection, closing its Send channel, and announces the
// departure if it had joined. Calling it more than once is harmless.
func (h *Hub) Leave(conn *Connection) {
	h.seq.Lock()
	defer h.seq.Unlock()

	h.mu.Lock()
	if _, ok := h.connections[conn.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.connections, conn.ID)
	close(conn.Send)
	username := conn.username
	members := h.membersLocked()
	h.mu.Unlock()

	h.log.Debug("Connection unregistered", "connection", conn.ID)
	if username == "" {
		return
	}
	h.log.Info("Member left", "username", username, "connection", conn.ID)
	h.announce(domain.NewLeft(username, fmt.Sprintf("%s left the chat", username), h.now()))
	h.announce(domain.NewPresenceSnapshot(members))
}

// Post broadcasts a chat message from a joined connection, sender included.
func (h *Hub) Post(conn *Connection, content string) bool {
	h.seq.Lock()
	defer h.seq.Unlock()

	username := h.Username(conn)
	if username == "" {
		return false
	}
	h.announce(domain.NewMessage(username, content, h.now()))
	return true
}

func (h *Hub) announce(e domain.Event) {
	data, err := protocol.EncodeEvent(e)
	if err != nil {
		h.log.Error("Failed to encode event", "kind", e.Kind, "error", err)
		return
	}
	h.broadcast <- data
}

// Username returns the name a connection joined with, or "".
func (h *Hub) Username(conn *Connection) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return conn.username
}

// Members returns the joined usernames, sorted and deduplicated.
func (h *Hub) Members() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.membersLocked()
}

func (h *Hub) membersLocked() []string {
	names := make([]string, 0, len(h.connections))
	for _, conn := range h.connections {
		if conn.username != "" {
			names = append(names, conn.username)
		}
	}
	names = lo.Uniq(names)
	sort.Strings(names)
	return names
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
