// Package ws provides the WebSocket transport the chat client uses to reach the relay.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/relaychat/internal/session"
)

// Options tunes the client side of the connection.
type Options struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout, when set, drops the connection if the relay stays silent
	// (no frames, no pings) for that long.
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

// Dialer opens WebSocket connections to the relay.
type Dialer struct {
	opts   Options
	dialer *websocket.Dialer
}

// NewDialer creates a dialer.
func NewDialer(opts Options) *Dialer {
	return &Dialer{
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Dial connects to url. Cancelling ctx aborts the handshake only.
func (d *Dialer) Dial(ctx context.Context, url string) (*Conn, error) {
	wsConn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if d.opts.MaxMessageSize > 0 {
		wsConn.SetReadLimit(d.opts.MaxMessageSize)
	}

	conn := &Conn{Conn: wsConn, writeTimeout: d.opts.WriteTimeout, readTimeout: d.opts.ReadTimeout}
	if conn.readTimeout > 0 {
		_ = wsConn.SetReadDeadline(time.Now().Add(conn.readTimeout))
		wsConn.SetPingHandler(conn.handlePing)
	}
	return conn, nil
}

// Session adapts d to the session.Dialer the chat session dials through.
func (d *Dialer) Session() session.Dialer {
	return session.DialerFunc(func(ctx context.Context, url string) (session.Conn, error) {
		conn, err := d.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Conn wraps a client WebSocket connection with text-frame reads and writes.
type Conn struct {
	Conn         *websocket.Conn
	writeTimeout time.Duration
	readTimeout  time.Duration
	mu           sync.Mutex
	closeOnce    sync.Once
}

// ReadMessage returns the next text frame.
func (c *Conn) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := c.Conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if c.readTimeout > 0 {
			_ = c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		if msgType == websocket.TextMessage {
			return data, nil
		}
	}
}

// WriteMessage writes data as a single text frame.
func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal closure frame and closes the socket.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.Conn.WriteControl(websocket.CloseMessage, msg, deadline)
		err = c.Conn.Close()
	})
	return err
}

func (c *Conn) handlePing(appData string) error {
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	err := c.Conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	if err == websocket.ErrCloseSent {
		return nil
	}
	return err
}
