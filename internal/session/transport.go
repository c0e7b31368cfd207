//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=../mocks/mock_transport.go -package=mocks

package session

import (
	"context"
	"fmt"
)

// Conn is an open transport to the relay. ReadMessage is called from one
// reader goroutine; WriteMessage and Close from the session goroutine.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens transports to the relay.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// TransportError reports a connection-level failure.
type TransportError struct {
	Op  string // dial, read or write
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
