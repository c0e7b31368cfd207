package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xiaot623/relaychat/internal/domain"
)

var ErrUnknownType = errors.New("unknown message type")

// ProtocolError reports an inbound frame that could not be decoded.
type ProtocolError struct {
	Type   string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "protocol error"
	if e.Type != "" {
		msg += " (type " + strconv.Quote(e.Type) + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// EncodeJoin encodes the join announcement for username.
func EncodeJoin(username string) ([]byte, error) {
	return json.Marshal(JoinMessage{Type: TypeJoin, Username: username})
}

// EncodeSend encodes a chat message intent.
func EncodeSend(text string) ([]byte, error) {
	return json.Marshal(SendMessage{Type: TypeMessage, Content: text})
}

// Decode parses a relay frame into a domain event.
func Decode(data []byte) (domain.Event, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return domain.Event{}, &ProtocolError{Reason: "invalid JSON", Err: err}
	}

	switch base.Type {
	case TypeMessage, TypeUserJoined, TypeUserLeft:
		return decodeEvent(base.Type, data)
	case TypeUsersList:
		var msg UsersListMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return domain.Event{}, &ProtocolError{Type: base.Type, Reason: "invalid users-list", Err: err}
		}
		members := msg.Users
		if members == nil {
			members = []string{}
		}
		return domain.NewPresenceSnapshot(members), nil
	case "":
		return domain.Event{}, &ProtocolError{Reason: "missing type"}
	default:
		return domain.Event{}, &ProtocolError{Type: base.Type, Reason: "unrecognized", Err: ErrUnknownType}
	}
}

func decodeEvent(typ string, data []byte) (domain.Event, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Event{}, &ProtocolError{Type: typ, Reason: "invalid event", Err: err}
	}
	at, err := parseTimestamp(msg.Timestamp)
	if err != nil {
		return domain.Event{}, &ProtocolError{Type: typ, Reason: "invalid timestamp", Err: err}
	}

	switch typ {
	case TypeUserJoined:
		return domain.NewJoined(msg.Username, msg.Content, at), nil
	case TypeUserLeft:
		return domain.NewLeft(msg.Username, msg.Content, at), nil
	default:
		return domain.NewMessage(msg.Username, msg.Content, at), nil
	}
}

// parseTimestamp accepts an RFC 3339 string or integer Unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339Nano, s)
	}

	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s is neither a string nor unix millis", raw)
	}
	return time.UnixMilli(ms), nil
}

// DecodeIntent parses a client frame on the relay side.
func DecodeIntent(data []byte) (Intent, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return Intent{}, &ProtocolError{Reason: "invalid JSON", Err: err}
	}

	switch base.Type {
	case TypeJoin:
		var msg JoinMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return Intent{}, &ProtocolError{Type: base.Type, Reason: "invalid join", Err: err}
		}
		return Intent{Type: TypeJoin, Username: msg.Username}, nil
	case TypeMessage:
		var msg SendMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return Intent{}, &ProtocolError{Type: base.Type, Reason: "invalid message", Err: err}
		}
		return Intent{Type: TypeMessage, Content: msg.Content}, nil
	case "":
		return Intent{}, &ProtocolError{Reason: "missing type"}
	default:
		return Intent{}, &ProtocolError{Type: base.Type, Reason: "unrecognized", Err: ErrUnknownType}
	}
}

// EncodeEvent encodes a domain event as the relay broadcasts it.
func EncodeEvent(e domain.Event) ([]byte, error) {
	if e.Kind == domain.KindPresenceSnapshot {
		users := e.Members
		if users == nil {
			users = []string{}
		}
		return json.Marshal(UsersListMessage{Type: TypeUsersList, Users: users})
	}

	var typ string
	switch e.Kind {
	case domain.KindMessage:
		typ = TypeMessage
	case domain.KindJoined:
		typ = TypeUserJoined
	case domain.KindLeft:
		typ = TypeUserLeft
	default:
		return nil, fmt.Errorf("encode event: %w: %s", ErrUnknownType, e.Kind)
	}

	ts, err := json.Marshal(e.OccurredAt.UTC().Format(TimestampLayout))
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventMessage{
		Type:      typ,
		Username:  e.Author,
		Content:   e.Text,
		Timestamp: ts,
	})
}
