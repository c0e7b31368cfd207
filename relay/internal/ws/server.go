// Package ws provides the relay's WebSocket endpoint.
package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/relaychat/internal/config"
	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/protocol"
	"github.com/xiaot623/relaychat/relay/internal/hub"
)

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Relay
	hub      *hub.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Relay, h *hub.Hub, log *slog.Logger) *Server {
	return &Server{
		cfg: cfg,
		hub: h,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("Failed to upgrade WebSocket", "error", err)
		return err
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads frames until the peer goes away, then leaves the room.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Leave(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		msgType, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn("WebSocket error", "connection", conn.ID, "error", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}

		s.handleMessage(conn, message)
	}
}

// writePump drains the connection's Send queue and keeps it alive with pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn("Failed to write message", "connection", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches a client intent. Frames that cannot be honoured
// are logged and dropped; the protocol has no error reply.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	intent, err := protocol.DecodeIntent(data)
	if err != nil {
		s.log.Warn("Dropping invalid frame", "connection", conn.ID, "error", err)
		return
	}

	switch intent.Type {
	case protocol.TypeJoin:
		s.handleJoin(conn, intent.Username)
	case protocol.TypeMessage:
		s.handleChat(conn, intent.Content)
	}
}

func (s *Server) handleJoin(conn *hub.Connection, raw string) {
	username, err := domain.NormalizeIdentity(raw)
	if err != nil {
		s.log.Warn("Rejected join", "connection", conn.ID, "error", err)
		return
	}
	if !s.hub.Join(conn, username) {
		s.log.Debug("Ignoring repeated join", "connection", conn.ID, "username", username)
	}
}

func (s *Server) handleChat(conn *hub.Connection, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	if !s.hub.Post(conn, content) {
		s.log.Warn("Dropping message from unjoined connection", "connection", conn.ID)
	}
}
