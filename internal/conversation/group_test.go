package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/relaychat/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

func msg(author, text string) domain.Event { return domain.NewMessage(author, text, t0) }

func TestGroup_SystemEventSplitsRun(t *testing.T) {
	req := require.New(t)
	log := []domain.Event{
		msg("A", "hi"),
		msg("A", "there"),
		domain.NewJoined("B", "B joined the chat", t0),
		msg("A", "yo"),
	}

	groups := Group(log, "A")

	req.Len(groups, 3)
	req.Equal("A", groups[0].Author)
	req.True(groups[0].IsOwn)
	req.Equal([]string{"hi", "there"}, groups[0].Texts())

	req.True(groups[1].System)
	req.False(groups[1].IsOwn)
	req.Len(groups[1].Events, 1)
	req.Equal(domain.KindJoined, groups[1].Events[0].Kind)

	req.Equal("A", groups[2].Author)
	req.True(groups[2].IsOwn)
	req.Equal([]string{"yo"}, groups[2].Texts())
}

func TestGroup_AuthorChanges(t *testing.T) {
	req := require.New(t)
	log := []domain.Event{
		msg("alice", "1"),
		msg("bob", "2"),
		msg("bob", "3"),
		msg("Bob", "4"),
		msg("alice", "5"),
	}

	groups := Group(log, "bob")

	req.Len(groups, 4)
	req.Equal([]string{"1"}, groups[0].Texts())
	req.False(groups[0].IsOwn)
	req.Equal([]string{"2", "3"}, groups[1].Texts())
	req.True(groups[1].IsOwn)
	// Author matching is case-sensitive.
	req.Equal("Bob", groups[2].Author)
	req.False(groups[2].IsOwn)
	req.Equal([]string{"5"}, groups[3].Texts())
}

func TestGroup_AdjacentSystemEventsStayApart(t *testing.T) {
	req := require.New(t)
	log := []domain.Event{
		domain.NewJoined("a", "a joined the chat", t0),
		domain.NewJoined("b", "b joined the chat", t0),
		domain.NewLeft("a", "a left the chat", t0),
	}

	groups := Group(log, "b")

	req.Len(groups, 3)
	for _, g := range groups {
		req.True(g.System)
		req.Len(g.Events, 1)
	}
}

func TestGroup_SkipsSnapshotsAndEmptyLog(t *testing.T) {
	req := require.New(t)

	req.Empty(Group(nil, "a"))

	log := []domain.Event{
		msg("a", "1"),
		domain.NewPresenceSnapshot([]string{"a"}),
		msg("a", "2"),
	}
	groups := Group(log, "a")
	req.Len(groups, 1)
	req.Equal([]string{"1", "2"}, groups[0].Texts())
}

func TestGroup_Idempotent(t *testing.T) {
	req := require.New(t)
	log := []domain.Event{
		msg("a", "1"),
		domain.NewLeft("c", "c left the chat", t0),
		msg("b", "2"),
		msg("b", "3"),
		msg("a", "4"),
	}

	first := Group(log, "a")
	second := Group(log, "a")
	req.Equal(first, second)

	// Grouping a prefix keeps the boundaries already seen.
	prefix := Group(log[:3], "a")
	req.Equal(first[:2], prefix[:2])
}
