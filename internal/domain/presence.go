package domain

import (
	"sort"

	"github.com/samber/lo"
)

// PresenceSet holds the usernames currently online.
// It is only ever rebuilt from a full snapshot, never patched.
type PresenceSet map[string]struct{}

// NewPresenceSet builds a set from a snapshot member list. Duplicates collapse.
func NewPresenceSet(members []string) PresenceSet {
	set := make(PresenceSet, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return set
}

func (p PresenceSet) Contains(username string) bool {
	_, ok := p[username]
	return ok
}

func (p PresenceSet) Len() int { return len(p) }

// Members returns the usernames in lexical order.
func (p PresenceSet) Members() []string {
	members := lo.Keys(p)
	sort.Strings(members)
	return members
}
