// Package domain defines the chat session model shared by the client engine and the relay.
package domain

import "time"

// Kind identifies what an Event records.
type Kind string

const (
	KindJoined           Kind = "joined"
	KindLeft             Kind = "left"
	KindMessage          Kind = "message"
	KindPresenceSnapshot Kind = "presence_snapshot"
)

// Event is an immutable record received from the relay.
// Author and Text are empty for presence snapshots; Members is only set on them.
type Event struct {
	Kind       Kind
	Author     string
	Text       string
	OccurredAt time.Time
	Members    []string
}

// IsSystem reports whether the event is a join or leave notice.
func (e Event) IsSystem() bool {
	return e.Kind == KindJoined || e.Kind == KindLeft
}

// Visible reports whether the event belongs in the conversation log.
func (e Event) Visible() bool {
	return e.Kind == KindMessage || e.IsSystem()
}

func NewMessage(author, text string, at time.Time) Event {
	return Event{Kind: KindMessage, Author: author, Text: text, OccurredAt: at}
}

func NewJoined(author, note string, at time.Time) Event {
	return Event{Kind: KindJoined, Author: author, Text: note, OccurredAt: at}
}

func NewLeft(author, note string, at time.Time) Event {
	return Event{Kind: KindLeft, Author: author, Text: note, OccurredAt: at}
}

func NewPresenceSnapshot(members []string) Event {
	return Event{Kind: KindPresenceSnapshot, Members: members}
}
