package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xiaot623/relaychat/internal/conversation"
	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/protocol"
)

// ErrClosed is returned once the manager's Run loop has stopped.
var ErrClosed = errors.New("session closed")

const defaultEventBuffer = 64

// NoticeKind classifies connectivity notices surfaced to the presentation layer.
type NoticeKind int

const (
	NoticeConnected NoticeKind = iota
	NoticeDisconnected
	NoticeConnectionLost
	NoticeProtocolError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeConnected:
		return "connected"
	case NoticeDisconnected:
		return "disconnected"
	case NoticeConnectionLost:
		return "connection_lost"
	case NoticeProtocolError:
		return "protocol_error"
	default:
		return "unknown"
	}
}

// Notice is a connectivity or protocol event worth telling the user about.
type Notice struct {
	Kind NoticeKind
	Err  error
	At   time.Time
}

// Options configures a Manager.
type Options struct {
	URL string
	// ConnectTimeout bounds the dial. Zero waits indefinitely.
	ConnectTimeout time.Duration
	EventBuffer    int
}

// View is what a renderer needs: the store snapshot and its display groups.
type View struct {
	Snapshot
	Groups []conversation.DisplayGroup
}

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdSend
	cmdDisconnect
)

type command struct {
	kind  commandKind
	arg   string
	reply chan error
}

type eventKind int

const (
	evOpened eventKind = iota
	evOpenFailed
	evFrame
	evClosed
)

// transportEvent is posted by dial and reader goroutines. gen ties it to the
// connect attempt that produced it.
type transportEvent struct {
	kind eventKind
	gen  uint64
	conn Conn
	data []byte
	err  error
}

// Manager owns the relay connection and is the only writer of its Store.
// All commands and transport events are handled one at a time by Run.
type Manager struct {
	opts   Options
	dialer Dialer
	store  *Store
	log    *slog.Logger

	commands chan command
	events   chan transportEvent
	notices  chan Notice
	done     chan struct{}

	// closed is set once Run has stopped; post refuses events after that.
	postMu sync.Mutex
	closed bool

	// Owned by the Run goroutine.
	ctx        context.Context
	gen        uint64
	conn       Conn
	cancelDial context.CancelFunc
}

// NewManager creates a manager. Call Run to start processing.
func NewManager(dialer Dialer, store *Store, log *slog.Logger, opts Options) *Manager {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	return &Manager{
		opts:     opts,
		dialer:   dialer,
		store:    store,
		log:      log,
		commands: make(chan command),
		events:   make(chan transportEvent, opts.EventBuffer),
		notices:  make(chan Notice, 16),
		done:     make(chan struct{}),
	}
}

func (m *Manager) Store() *Store { return m.store }

// Notices delivers connectivity notices. Slow readers miss notices rather than
// stall the session.
func (m *Manager) Notices() <-chan Notice { return m.notices }

// Done is closed when Run returns.
func (m *Manager) Done() <-chan struct{} { return m.done }

// View returns the current state with freshly computed display groups.
func (m *Manager) View() View {
	snap := m.store.Snapshot()
	return View{
		Snapshot: snap,
		Groups:   conversation.Group(snap.Events, snap.Identity),
	}
}

// Connect starts a session as identity. It returns an error wrapping
// domain.ErrInvalidIntent, with no effect, when identity is blank or too long
// or a session is already connecting or connected.
func (m *Manager) Connect(identity string) error {
	return m.do(cmdConnect, identity)
}

// Send transmits text to the relay. The log is only updated when the relay
// echoes the message back. Blank text or a missing connection yields
// domain.ErrInvalidIntent.
func (m *Manager) Send(text string) error {
	return m.do(cmdSend, text)
}

// Disconnect closes the transport and clears the session. Safe in any state.
func (m *Manager) Disconnect() {
	_ = m.do(cmdDisconnect, "")
}

func (m *Manager) do(kind commandKind, arg string) error {
	cmd := command{kind: kind, arg: arg, reply: make(chan error, 1)}
	select {
	case m.commands <- cmd:
	case <-m.done:
		return ErrClosed
	}
	return <-cmd.reply
}

// Run processes commands and transport events until ctx is done.
// It must be called exactly once.
func (m *Manager) Run(ctx context.Context) error {
	m.ctx = ctx
	defer m.stop()

	for {
		select {
		case cmd := <-m.commands:
			cmd.reply <- m.handleCommand(cmd)
		case ev := <-m.events:
			m.handleEvent(ev)
		case <-ctx.Done():
			m.shutdown()
			return nil
		}
	}
}

func (m *Manager) handleCommand(cmd command) error {
	switch cmd.kind {
	case cmdConnect:
		return m.connect(cmd.arg)
	case cmdSend:
		return m.send(cmd.arg)
	case cmdDisconnect:
		m.disconnect()
		return nil
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
}

func (m *Manager) connect(raw string) error {
	identity, err := domain.NormalizeIdentity(raw)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", domain.ErrInvalidIntent, err)
	}
	if state := m.store.State(); state != domain.Disconnected {
		return fmt.Errorf("%w: connect while %s", domain.ErrInvalidIntent, state)
	}

	m.gen++
	m.store.begin(identity)

	var ctx context.Context
	var cancel context.CancelFunc
	if m.opts.ConnectTimeout > 0 {
		ctx, cancel = context.WithTimeout(m.ctx, m.opts.ConnectTimeout)
	} else {
		ctx, cancel = context.WithCancel(m.ctx)
	}
	m.cancelDial = cancel

	m.log.Info("Connecting to relay", "url", m.opts.URL, "identity", identity, "generation", m.gen)
	go m.dial(ctx, m.gen)
	return nil
}

func (m *Manager) send(text string) error {
	if state := m.store.State(); state != domain.Connected || m.conn == nil {
		return fmt.Errorf("%w: send while %s", domain.ErrInvalidIntent, state)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: blank message", domain.ErrInvalidIntent)
	}

	data, err := protocol.EncodeSend(text)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	if err := m.conn.WriteMessage(data); err != nil {
		terr := &TransportError{Op: "write", Err: err}
		m.lose(terr)
		return terr
	}
	m.log.Debug("Message sent", "bytes", len(data))
	return nil
}

func (m *Manager) disconnect() {
	if m.conn == nil && m.cancelDial == nil && m.store.State() == domain.Disconnected && m.store.Identity() == "" {
		return
	}

	m.gen++
	m.stopDial()
	m.closeConn()
	m.store.end()
	m.log.Info("Disconnected")
	m.notify(Notice{Kind: NoticeDisconnected})
}

func (m *Manager) shutdown() {
	m.gen++
	m.stopDial()
	m.closeConn()
	m.store.end()
}

// stop releases goroutines blocked in post, then closes any transport that
// was opened but never handed to the loop.
func (m *Manager) stop() {
	close(m.done)

	m.postMu.Lock()
	m.closed = true
	m.postMu.Unlock()

	for {
		select {
		case ev := <-m.events:
			if ev.kind == evOpened {
				m.log.Debug("Closing transport opened after shutdown", "generation", ev.gen)
				_ = ev.conn.Close()
			}
		default:
			return
		}
	}
}

func (m *Manager) handleEvent(ev transportEvent) {
	switch ev.kind {
	case evOpened:
		m.opened(ev)
	case evOpenFailed:
		if ev.gen != m.gen {
			return
		}
		m.stopDial()
		m.lose(&TransportError{Op: "dial", Err: ev.err})
	case evFrame:
		if ev.gen != m.gen || m.conn == nil {
			return
		}
		m.receive(ev.data)
	case evClosed:
		if ev.gen != m.gen || m.conn == nil {
			return
		}
		m.lose(&TransportError{Op: "read", Err: ev.err})
	}
}

func (m *Manager) opened(ev transportEvent) {
	if ev.gen != m.gen || m.store.State() != domain.Connecting {
		m.log.Debug("Closing stale transport", "generation", ev.gen)
		_ = ev.conn.Close()
		return
	}

	m.stopDial()
	m.conn = ev.conn
	m.store.setState(domain.Connected)
	m.log.Info("Connected to relay", "url", m.opts.URL)
	m.notify(Notice{Kind: NoticeConnected})

	data, err := protocol.EncodeJoin(m.store.Identity())
	if err != nil {
		m.lose(&TransportError{Op: "write", Err: err})
		return
	}
	if err := m.conn.WriteMessage(data); err != nil {
		m.lose(&TransportError{Op: "write", Err: err})
		return
	}

	go m.read(ev.gen, ev.conn)
}

func (m *Manager) receive(data []byte) {
	evt, err := protocol.Decode(data)
	if err != nil {
		m.log.Warn("Dropping inbound frame", "error", err)
		m.notify(Notice{Kind: NoticeProtocolError, Err: err})
		return
	}
	m.log.Debug("Inbound event", "kind", evt.Kind, "author", evt.Author)
	m.store.Apply(evt)
}

// lose handles a transport failure: the log survives, presence does not.
func (m *Manager) lose(err *TransportError) {
	m.closeConn()
	m.store.drop()
	m.log.Error("Connection lost", "error", err)
	m.notify(Notice{Kind: NoticeConnectionLost, Err: err})
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	conn, err := m.dialer.Dial(ctx, m.opts.URL)
	if err != nil {
		m.post(transportEvent{kind: evOpenFailed, gen: gen, err: err})
		return
	}
	if !m.post(transportEvent{kind: evOpened, gen: gen, conn: conn}) {
		_ = conn.Close()
	}
}

func (m *Manager) read(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.post(transportEvent{kind: evClosed, gen: gen, err: err})
			return
		}
		if !m.post(transportEvent{kind: evFrame, gen: gen, data: data}) {
			return
		}
	}
}

func (m *Manager) post(ev transportEvent) bool {
	m.postMu.Lock()
	defer m.postMu.Unlock()
	if m.closed {
		return false
	}
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

func (m *Manager) stopDial() {
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
}

func (m *Manager) closeConn() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		m.log.Debug("Closing transport", "error", err)
	}
	m.conn = nil
}

func (m *Manager) notify(n Notice) {
	n.At = time.Now()
	select {
	case m.notices <- n:
	default:
		m.log.Debug("Notice dropped", "kind", n.Kind)
	}
}
