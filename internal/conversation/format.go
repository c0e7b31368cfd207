package conversation

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/xiaot623/relaychat/internal/domain"
)

const noMessages = "No messages yet"

// Clock formats t as a 24-hour hour:minute stamp.
func Clock(t time.Time) string {
	return t.Local().Format("15:04")
}

// Stamp formats t for a list row: the clock within the last day, the date otherwise.
func Stamp(t, now time.Time) string {
	if now.Sub(t) < 24*time.Hour {
		return Clock(t)
	}
	return t.Local().Format("Jan 2")
}

// Preview returns the text of the last visible event in log.
func Preview(log []domain.Event) string {
	last, ok := lastVisible(log)
	if !ok {
		return noMessages
	}
	return last.Text
}

// LastActivity stamps the last visible event in log relative to now.
func LastActivity(log []domain.Event, now time.Time) string {
	last, ok := lastVisible(log)
	if !ok {
		return ""
	}
	return Stamp(last.OccurredAt, now)
}

func lastVisible(log []domain.Event) (domain.Event, bool) {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Visible() {
			return log[i], true
		}
	}
	return domain.Event{}, false
}

// Participants labels a member count.
func Participants(n int) string {
	if n == 1 {
		return "1 participant"
	}
	return strconv.Itoa(n) + " participants"
}

// Initial is the avatar letter for name.
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// Others lists members other than identity, keeping their order.
func Others(members []string, identity string) []string {
	return lo.Filter(members, func(m string, _ int) bool {
		return m != identity
	})
}
