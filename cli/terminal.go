package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xiaot623/relaychat/internal/conversation"
	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/render"
	"github.com/xiaot623/relaychat/internal/session"
)

const clearScreen = "\033[H\033[2J"

const helpText = `Commands:
  /join <name>  connect to the relay as <name>
  /leave        disconnect and clear the conversation
  /who          list who is online
  /help         show this help
  /quit         exit
Anything else is sent as a message.`

// chatSession is the part of session.Manager the terminal drives.
type chatSession interface {
	Connect(identity string) error
	Send(text string) error
	Disconnect()
	View() session.View
}

// terminal turns input lines into session intents and draws the session.
// With redraw set it repaints the whole screen on every change; otherwise it
// appends events as they arrive.
type terminal struct {
	out      io.Writer
	session  chatSession
	renderer render.Renderer
	redraw   bool

	status  string
	epoch   uint64
	printed int
}

// readLines feeds r line by line into the returned channel, closing it at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func (t *terminal) loop(ctx context.Context, lines <-chan string, changes <-chan struct{}, notices <-chan session.Notice) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			t.draw()
		case n := <-notices:
			var buf bytes.Buffer
			t.renderer.Notice(&buf, n)
			t.status = buf.String()
			if t.redraw {
				t.draw()
			} else {
				fmt.Fprint(t.out, t.status)
			}
		case line, ok := <-lines:
			if !ok || t.handle(line) {
				return
			}
		}
	}
}

// handle runs one input line. It reports whether the user asked to quit.
func (t *terminal) handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		if err := t.session.Send(line); err != nil {
			fmt.Fprintf(t.out, "! %v\n", err)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/join":
		if arg == "" {
			fmt.Fprintln(t.out, "! usage: /join <name>")
			return false
		}
		if err := t.session.Connect(arg); err != nil {
			fmt.Fprintf(t.out, "! %v\n", err)
		}
	case "/leave":
		t.session.Disconnect()
	case "/who":
		snap := t.session.View().Snapshot
		t.renderer.Presence(t.out, snap.Identity, snap.Presence)
		if len(snap.Presence) > 0 && len(conversation.Others(snap.Presence, snap.Identity)) == 0 {
			fmt.Fprintln(t.out, "Nobody else is here yet.")
		}
	case "/help":
		t.help()
	case "/quit":
		return true
	default:
		fmt.Fprintf(t.out, "! unknown command %s, try /help\n", cmd)
	}
	return false
}

func (t *terminal) help() {
	fmt.Fprintln(t.out, helpText)
}

func (t *terminal) draw() {
	view := t.session.View()
	if t.redraw {
		fmt.Fprint(t.out, clearScreen)
		t.renderer.View(t.out, view)
		fmt.Fprint(t.out, "\n"+t.status+"> ")
		return
	}

	// Log was cleared by a disconnect or a new join.
	if view.Epoch != t.epoch || len(view.Events) < t.printed {
		t.epoch = view.Epoch
		t.printed = 0
	}
	for _, e := range view.Events[t.printed:] {
		t.renderer.Group(t.out, conversation.DisplayGroup{
			Author: e.Author,
			IsOwn:  !e.IsSystem() && e.Author == view.Identity,
			System: e.IsSystem(),
			Events: []domain.Event{e},
		})
	}
	t.printed = len(view.Events)
}
