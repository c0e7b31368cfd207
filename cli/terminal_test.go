package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/render"
	"github.com/xiaot623/relaychat/internal/session"
)

type fakeSession struct {
	calls []string
	view  session.View
	err   error
}

func (f *fakeSession) Connect(identity string) error {
	f.calls = append(f.calls, "connect "+identity)
	return f.err
}

func (f *fakeSession) Send(text string) error {
	f.calls = append(f.calls, "send "+text)
	return f.err
}

func (f *fakeSession) Disconnect() { f.calls = append(f.calls, "disconnect") }

func (f *fakeSession) View() session.View { return f.view }

var at = time.Date(2024, 3, 1, 10, 30, 0, 0, time.Local)

func newTerminal() (*terminal, *fakeSession, *bytes.Buffer) {
	fake := &fakeSession{}
	out := &bytes.Buffer{}
	return &terminal{
		out:      out,
		session:  fake,
		renderer: render.Renderer{Now: func() time.Time { return at }},
	}, fake, out
}

func TestHandleCommands(t *testing.T) {
	req := require.New(t)
	term, fake, out := newTerminal()

	req.False(term.handle("   "))
	req.False(term.handle("/join   alice "))
	req.False(term.handle("hello there"))
	req.False(term.handle("/leave"))
	req.False(term.handle("/help"))
	req.True(term.handle("/quit"))

	req.Equal([]string{"connect alice", "send hello there", "disconnect"}, fake.calls)
	req.Contains(out.String(), "Commands:")
}

func TestHandleReportsErrors(t *testing.T) {
	req := require.New(t)
	term, fake, out := newTerminal()
	fake.err = fmt.Errorf("send: not connected: %w", domain.ErrInvalidIntent)

	term.handle("hello")
	term.handle("/join")
	term.handle("/nope")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	req.Len(lines, 3)
	req.Contains(lines[0], "not connected")
	req.Equal("! usage: /join <name>", lines[1])
	req.Equal("! unknown command /nope, try /help", lines[2])
	req.Equal([]string{"send hello"}, fake.calls)
}

func TestWho(t *testing.T) {
	term, fake, out := newTerminal()
	fake.view.Identity = "bob"
	fake.view.Presence = []string{"alice", "bob"}

	term.handle("/who")

	require.Contains(t, out.String(), "alice")
	require.Contains(t, out.String(), "2 participants")
	require.NotContains(t, out.String(), "Nobody else")

	out.Reset()
	fake.view.Presence = []string{"bob"}
	term.handle("/who")
	require.Contains(t, out.String(), "Nobody else is here yet.")
}

func TestDrawAppendsNewEvents(t *testing.T) {
	req := require.New(t)
	term, fake, out := newTerminal()
	fake.view.Identity = "alice"
	fake.view.Events = []domain.Event{
		domain.NewJoined("alice", "alice joined the chat", at),
		domain.NewMessage("alice", "hi", at),
	}

	term.draw()
	req.Contains(out.String(), "-- alice joined the chat (10:30) --")
	req.Contains(out.String(), "You\n  hi  10:30 ✓✓\n")

	out.Reset()
	fake.view.Events = append(fake.view.Events, domain.NewMessage("bob", "yo", at))
	term.draw()
	req.Equal("bob\n  yo  10:30\n", out.String())

	out.Reset()
	fake.view.Events = []domain.Event{domain.NewMessage("carol", "fresh", at)}
	term.draw()
	req.Equal("carol\n  fresh  10:30\n", out.String())
}

func TestDrawRestartsAfterLogIsReplaced(t *testing.T) {
	req := require.New(t)
	term, fake, out := newTerminal()
	fake.view.Identity = "alice"
	fake.view.Epoch = 1
	fake.view.Events = []domain.Event{
		domain.NewMessage("bob", "one", at),
		domain.NewMessage("bob", "two", at),
	}
	term.draw()

	out.Reset()
	fake.view.Epoch = 2
	fake.view.Events = []domain.Event{
		domain.NewJoined("alice", "alice joined the chat", at),
		domain.NewMessage("carol", "new", at),
	}
	term.draw()
	req.Equal("  -- alice joined the chat (10:30) --\ncarol\n  new  10:30\n", out.String())
}

func TestLoopStopsOnQuitAndEOF(t *testing.T) {
	term, fake, _ := newTerminal()

	lines := make(chan string, 2)
	lines <- "hi"
	lines <- "/quit"
	term.loop(context.Background(), lines, nil, nil)
	require.Equal(t, []string{"send hi"}, fake.calls)

	closed := make(chan string)
	close(closed)
	term.loop(context.Background(), closed, nil, nil)
}

func TestLoopPrintsNotices(t *testing.T) {
	term, _, out := newTerminal()

	notices := make(chan session.Notice)
	lines := make(chan string)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		term.loop(ctx, lines, nil, notices)
	}()

	notices <- session.Notice{Kind: session.NoticeConnected}
	lines <- ""
	cancel()
	<-done
	require.Equal(t, "* connected\n", out.String())
}

func TestReadLines(t *testing.T) {
	var got []string
	for line := range readLines(strings.NewReader("one\ntwo\n")) {
		got = append(got, line)
	}
	require.Equal(t, []string{"one", "two"}, got)
}
