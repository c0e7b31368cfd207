// Package conversation derives the renderable view of a session's event log.
// Everything here is a pure function of the log; nothing is cached between calls.
package conversation

import "github.com/xiaot623/relaychat/internal/domain"

// DisplayGroup is a run of consecutive messages by one author, or a single
// join/leave notice when System is set.
type DisplayGroup struct {
	Author string
	IsOwn  bool
	System bool
	Events []domain.Event
}

// Group splits log into display groups for the local identity.
// Author comparison is exact and case-sensitive. Presence snapshots are skipped.
func Group(log []domain.Event, identity string) []DisplayGroup {
	var groups []DisplayGroup
	var current []domain.Event
	var author string

	flush := func() {
		if len(current) == 0 {
			return
		}
		groups = append(groups, DisplayGroup{
			Author: author,
			IsOwn:  author == identity,
			Events: current,
		})
		current = nil
	}

	for _, evt := range log {
		switch {
		case evt.Kind == domain.KindMessage:
			if len(current) > 0 && evt.Author == author {
				current = append(current, evt)
				continue
			}
			flush()
			author = evt.Author
			current = []domain.Event{evt}
		case evt.IsSystem():
			flush()
			groups = append(groups, DisplayGroup{
				System: true,
				Events: []domain.Event{evt},
			})
		}
	}
	flush()

	return groups
}

// Texts returns the text of each event in the group, in order.
func (g DisplayGroup) Texts() []string {
	texts := make([]string, len(g.Events))
	for i, evt := range g.Events {
		texts[i] = evt.Text
	}
	return texts
}
