package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xiaot623/relaychat/internal/domain"
)

func TestStamp(t *testing.T) {
	req := require.New(t)
	now := time.Date(2024, 3, 2, 8, 0, 0, 0, time.Local)

	req.Equal("07:45", Stamp(now.Add(-15*time.Minute), now))
	req.Equal("09:00", Stamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local), now))
	req.Equal("Mar 1", Stamp(now.Add(-24*time.Hour), now))
	// Clock skew: timestamps from the future still get a clock stamp.
	req.Equal("08:05", Stamp(now.Add(5*time.Minute), now))
}

func TestStampUsesLocalZone(t *testing.T) {
	req := require.New(t)
	local := time.Local
	time.Local = time.FixedZone("UTC+2", 2*60*60)
	t.Cleanup(func() { time.Local = local })

	relayed := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	req.Equal("01:30", Clock(relayed))
	req.Equal("Mar 2", Stamp(relayed, relayed.Add(48*time.Hour)))
}

func TestPreviewAndLastActivity(t *testing.T) {
	req := require.New(t)
	now := t0.Add(time.Hour)

	req.Equal("No messages yet", Preview(nil))
	req.Equal("", LastActivity(nil, now))

	log := []domain.Event{
		msg("a", "hello"),
		domain.NewJoined("b", "b joined the chat", t0.Add(time.Minute)),
	}
	req.Equal("b joined the chat", Preview(log))
	req.Equal("09:01", LastActivity(log, now))
}

func TestLabels(t *testing.T) {
	req := require.New(t)

	req.Equal("1 participant", Participants(1))
	req.Equal("0 participants", Participants(0))
	req.Equal("3 participants", Participants(3))

	req.Equal("A", Initial("alice"))
	req.Equal("É", Initial(" émile"))
	req.Equal("?", Initial(""))

	req.Equal([]string{"bob", "carol"}, Others([]string{"alice", "bob", "carol"}, "alice"))
	req.Empty(Others([]string{"alice"}, "alice"))
}
