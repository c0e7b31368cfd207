// Package render draws a chat session view as plain or coloured terminal text.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/xiaot623/relaychat/internal/conversation"
	"github.com/xiaot623/relaychat/internal/domain"
	"github.com/xiaot623/relaychat/internal/session"
)

// ownMark is decorative; the protocol carries no delivery receipts.
const ownMark = "✓✓"

// Renderer writes views to a terminal.
type Renderer struct {
	Colours bool
	Now     func() time.Time
}

func (r Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r Renderer) paint(c color.Color, s string) string {
	if !r.Colours {
		return s
	}
	return c.Render(s)
}

// View writes the header and the grouped conversation.
func (r Renderer) View(w io.Writer, v session.View) {
	r.Header(w, v.Snapshot)
	fmt.Fprintln(w)
	if len(v.Groups) == 0 {
		fmt.Fprintln(w, r.paint(color.FgDarkGray, "  "+conversation.Preview(nil)))
		return
	}
	for _, g := range v.Groups {
		r.Group(w, g)
	}
}

// Header writes identity, connection state, participant count and last activity.
func (r Renderer) Header(w io.Writer, snap session.Snapshot) {
	name := snap.Identity
	if name == "" {
		name = "(no identity)"
	}

	state := snap.State.String()
	switch snap.State {
	case domain.Connected:
		state = r.paint(color.FgGreen, state)
	case domain.Connecting:
		state = r.paint(color.FgYellow, state)
	default:
		state = r.paint(color.FgRed, state)
	}

	fmt.Fprintf(w, "[%s] %s · %s · %s\n",
		conversation.Initial(name), r.paint(color.OpBold, name), state,
		conversation.Participants(len(snap.Presence)))

	if stamp := conversation.LastActivity(snap.Events, r.now()); stamp != "" {
		fmt.Fprintf(w, "%s  %s\n",
			r.paint(color.FgDarkGray, stamp), truncate(conversation.Preview(snap.Events), 60))
	}
}

// Group writes one display group.
func (r Renderer) Group(w io.Writer, g conversation.DisplayGroup) {
	if g.System {
		evt := g.Events[0]
		fmt.Fprintln(w, r.paint(color.FgDarkGray,
			fmt.Sprintf("  -- %s (%s) --", evt.Text, conversation.Clock(evt.OccurredAt))))
		return
	}

	if g.IsOwn {
		fmt.Fprintln(w, r.paint(color.FgGreen, "You"))
	} else {
		fmt.Fprintln(w, r.paint(color.FgCyan, g.Author))
	}
	for _, evt := range g.Events {
		line := fmt.Sprintf("  %s  %s", evt.Text, r.paint(color.FgDarkGray, conversation.Clock(evt.OccurredAt)))
		if g.IsOwn {
			line += " " + r.paint(color.FgBlue, ownMark)
		}
		fmt.Fprintln(w, line)
	}
}

// Presence writes the online members as a table, marking the local identity.
func (r Renderer) Presence(w io.Writer, identity string, members []string) {
	if len(members) == 0 {
		fmt.Fprintln(w, "Nobody is online.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Member", "Status"})
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")

	for _, m := range members {
		status := "online"
		if m == identity {
			status = "you"
		}
		table.Append([]string{conversation.Initial(m), m, status})
	}
	table.Render()

	fmt.Fprintln(w, conversation.Participants(len(members)))
}

// Notice writes a one-line connectivity notice.
func (r Renderer) Notice(w io.Writer, n session.Notice) {
	switch n.Kind {
	case session.NoticeConnected:
		fmt.Fprintln(w, r.paint(color.FgGreen, "* connected"))
	case session.NoticeDisconnected:
		fmt.Fprintln(w, r.paint(color.FgYellow, "* disconnected"))
	case session.NoticeConnectionLost:
		fmt.Fprintln(w, r.paint(color.FgRed, fmt.Sprintf("* connection lost: %v (use /join <name> to reconnect)", n.Err)))
	case session.NoticeProtocolError:
		fmt.Fprintln(w, r.paint(color.FgYellow, fmt.Sprintf("* ignored a bad frame: %v", n.Err)))
	}
}

func truncate(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
