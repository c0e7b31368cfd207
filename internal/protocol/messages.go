// Package protocol defines the JSON message protocol between chat clients and the relay.
package protocol

import "encoding/json"

// Message types from client to relay
const (
	TypeJoin    = "join"
	TypeMessage = "message"
)

// Message types from relay to client. TypeMessage is shared with the client direction.
const (
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeUsersList  = "users-list"
)

// TimestampLayout is the ISO-8601 form the relay stamps events with.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// BaseMessage carries the type discriminator every frame must have.
type BaseMessage struct {
	Type string `json:"type"`
}

// JoinMessage is sent by a client right after the connection opens.
type JoinMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// SendMessage is sent by a client to post chat text.
type SendMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// EventMessage is broadcast by the relay for chat messages and join/leave notices.
type EventMessage struct {
	Type      string          `json:"type"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

// UsersListMessage is broadcast by the relay with the full set of online members.
type UsersListMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// Intent is a decoded client frame, as seen by the relay.
type Intent struct {
	Type     string
	Username string
	Content  string
}
