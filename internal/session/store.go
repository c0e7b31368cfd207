// Package session holds the client-side chat session: its state store and the
// connection manager that is the store's only writer.
package session

import (
	"sync"

	"github.com/xiaot623/relaychat/internal/domain"
)

// Snapshot is a consistent copy of the store's state.
type Snapshot struct {
	Identity string
	State    domain.ConnectionState
	Events   []domain.Event
	Presence []string
	// Epoch changes every time the log is cleared, so a reader holding an
	// older epoch knows its view of the log is gone.
	Epoch uint64
}

// Store is the canonical in-memory session state.
// Mutations are expected from a single goroutine; reads are safe from any.
type Store struct {
	mu       sync.RWMutex
	identity string
	state    domain.ConnectionState
	events   []domain.Event
	presence domain.PresenceSet
	epoch    uint64

	changes chan struct{}
}

// NewStore creates an empty, disconnected store.
func NewStore() *Store {
	return &Store{
		presence: domain.PresenceSet{},
		changes:  make(chan struct{}, 1),
	}
}

// Changes signals after mutations. Signals coalesce: one pending signal may
// stand for several changes, so readers should take a fresh Snapshot.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) changed() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Apply routes a decoded event: snapshots replace presence, the rest are appended.
func (s *Store) Apply(e domain.Event) {
	if e.Kind == domain.KindPresenceSnapshot {
		s.ReplacePresence(e.Members)
		return
	}
	s.AppendEvent(e)
}

// AppendEvent adds a visible event to the end of the log.
// It returns false for events that do not belong in the log.
func (s *Store) AppendEvent(e domain.Event) bool {
	if !e.Visible() {
		return false
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	s.changed()
	return true
}

// ReplacePresence sets presence to exactly members.
func (s *Store) ReplacePresence(members []string) {
	s.mu.Lock()
	s.presence = domain.NewPresenceSet(members)
	s.mu.Unlock()
	s.changed()
}

// ClearPresence empties the presence set.
func (s *Store) ClearPresence() {
	s.ReplacePresence(nil)
}

// Reset clears the log and presence.
func (s *Store) Reset() {
	s.mu.Lock()
	s.events = nil
	s.epoch++
	s.presence = domain.PresenceSet{}
	s.mu.Unlock()
	s.changed()
}

func (s *Store) begin(identity string) {
	s.mu.Lock()
	s.identity = identity
	s.state = domain.Connecting
	s.events = nil
	s.epoch++
	s.presence = domain.PresenceSet{}
	s.mu.Unlock()
	s.changed()
}

func (s *Store) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.changed()
}

// drop marks the transport gone: disconnected, no presence, log kept.
func (s *Store) drop() {
	s.mu.Lock()
	s.state = domain.Disconnected
	s.presence = domain.PresenceSet{}
	s.mu.Unlock()
	s.changed()
}

// end releases the session: identity, log and presence are cleared.
func (s *Store) end() {
	s.mu.Lock()
	s.identity = ""
	s.state = domain.Disconnected
	s.events = nil
	s.epoch++
	s.presence = domain.PresenceSet{}
	s.mu.Unlock()
	s.changed()
}

func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Store) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events returns a copy of the log in arrival order.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

// Presence returns the online members, sorted.
func (s *Store) Presence() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presence.Members()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Identity: s.identity,
		State:    s.state,
		Events:   append([]domain.Event(nil), s.events...),
		Presence: s.presence.Members(),
		Epoch:    s.epoch,
	}
}
