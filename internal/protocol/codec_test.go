package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/relaychat/internal/domain"
)

func TestEncodeIntents(t *testing.T) {
	req := require.New(t)

	data, err := EncodeJoin("alice")
	req.NoError(err)
	req.JSONEq(`{"type":"join","username":"alice"}`, string(data))

	data, err = EncodeSend("hello there")
	req.NoError(err)
	req.JSONEq(`{"type":"message","content":"hello there"}`, string(data))
}

func TestDecodeEvents(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

	evt, err := Decode([]byte(`{"type":"message","username":"bob","content":"hi","timestamp":"2024-03-01T10:15:00.000Z"}`))
	req.NoError(err)
	req.Equal(domain.KindMessage, evt.Kind)
	req.Equal("bob", evt.Author)
	req.Equal("hi", evt.Text)
	req.True(at.Equal(evt.OccurredAt))

	evt, err = Decode([]byte(`{"type":"user-joined","username":"carol","content":"carol joined the chat","timestamp":"2024-03-01T10:15:00Z"}`))
	req.NoError(err)
	req.Equal(domain.KindJoined, evt.Kind)
	req.Equal("carol joined the chat", evt.Text)

	evt, err = Decode([]byte(`{"type":"user-left","username":"carol","content":"carol left the chat","timestamp":1709288100000}`))
	req.NoError(err)
	req.Equal(domain.KindLeft, evt.Kind)
	req.True(at.Equal(evt.OccurredAt))

	evt, err = Decode([]byte(`{"type":"message","username":"bob","content":"no clock"}`))
	req.NoError(err)
	req.True(evt.OccurredAt.IsZero())
}

func TestDecodeUsersList(t *testing.T) {
	req := require.New(t)

	evt, err := Decode([]byte(`{"type":"users-list","users":["alice","bob"]}`))
	req.NoError(err)
	req.Equal(domain.KindPresenceSnapshot, evt.Kind)
	req.Equal([]string{"alice", "bob"}, evt.Members)

	evt, err = Decode([]byte(`{"type":"users-list"}`))
	req.NoError(err)
	req.NotNil(evt.Members)
	req.Empty(evt.Members)
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"type":`,
		"missing type":   `{"username":"bob"}`,
		"unknown type":   `{"type":"typing","username":"bob"}`,
		"bad timestamp":  `{"type":"message","username":"bob","content":"x","timestamp":"yesterday"}`,
		"bad users":      `{"type":"users-list","users":"bob"}`,
		"not an object":  `[1,2,3]`,
		"wrong username": `{"type":"message","username":42}`,
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(frame))
			var perr *ProtocolError
			require.True(t, errors.As(err, &perr), "got %v", err)
		})
	}

	_, err := Decode([]byte(`{"type":"typing"}`))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeIntent(t *testing.T) {
	req := require.New(t)

	intent, err := DecodeIntent([]byte(`{"type":"join","username":"alice"}`))
	req.NoError(err)
	req.Equal(Intent{Type: TypeJoin, Username: "alice"}, intent)

	intent, err = DecodeIntent([]byte(`{"type":"message","content":"hey"}`))
	req.NoError(err)
	req.Equal(Intent{Type: TypeMessage, Content: "hey"}, intent)

	_, err = DecodeIntent([]byte(`{"type":"users-list"}`))
	req.ErrorIs(err, ErrUnknownType)

	_, err = DecodeIntent([]byte(`nope`))
	var perr *ProtocolError
	req.ErrorAs(err, &perr)
}

func TestEncodeEventDecodes(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 10, 15, 30, 250*int(time.Millisecond), time.UTC)

	for _, evt := range []domain.Event{
		domain.NewMessage("alice", "hi", at),
		domain.NewJoined("bob", "bob joined the chat", at),
		domain.NewLeft("bob", "bob left the chat", at),
	} {
		data, err := EncodeEvent(evt)
		req.NoError(err)
		got, err := Decode(data)
		req.NoError(err)
		req.Equal(evt.Kind, got.Kind)
		req.Equal(evt.Author, got.Author)
		req.Equal(evt.Text, got.Text)
		req.True(at.Equal(got.OccurredAt))
	}

	data, err := EncodeEvent(domain.NewPresenceSnapshot(nil))
	req.NoError(err)
	req.JSONEq(`{"type":"users-list","users":[]}`, string(data))

	data, err = EncodeEvent(domain.NewMessage("alice", "hi", at))
	req.NoError(err)
	var raw map[string]any
	req.NoError(json.Unmarshal(data, &raw))
	req.Equal("2024-03-01T10:15:30.250Z", raw["timestamp"])
}
