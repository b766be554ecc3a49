package entities

import (
	"math/bits"
	"strings"
)

// ChangeKind is a single kind of repository change.
type ChangeKind uint32

const (
	// ChangeUnknown is used when a change could not be classified; it satisfies every ChangeModeAny query.
	ChangeUnknown ChangeKind = 1 << iota
	ChangeIndex
	ChangeHead
	ChangeHeads
	ChangeTags
	ChangeStash
	ChangeRemotes
	ChangeWorktrees
	ChangeConfig
	ChangeStatus
	ChangeCherryPick
	ChangeMerge
	ChangeRebase
	ChangeClosed
	ChangeOpened
	ChangeIgnores
	ChangeRemoteProviders
	ChangeStarred
)

// statusKinds are the kinds the synthetic Status kind stands for.
const statusKinds = ChangeSet(ChangeCherryPick | ChangeMerge | ChangeRebase)

var changeKindNames = map[ChangeKind]string{ //nolint:gochecknoglobals // lookup table
	ChangeUnknown:         "unknown",
	ChangeIndex:           "index",
	ChangeHead:            "head",
	ChangeHeads:           "heads",
	ChangeTags:            "tags",
	ChangeStash:           "stash",
	ChangeRemotes:         "remotes",
	ChangeWorktrees:       "worktrees",
	ChangeConfig:          "config",
	ChangeStatus:          "status",
	ChangeCherryPick:      "cherrypick",
	ChangeMerge:           "merge",
	ChangeRebase:          "rebase",
	ChangeClosed:          "closed",
	ChangeOpened:          "opened",
	ChangeIgnores:         "ignores",
	ChangeRemoteProviders: "remoteProviders",
	ChangeStarred:         "starred",
}

func (k ChangeKind) String() string {
	if name, ok := changeKindNames[k]; ok {
		return name
	}
	return "invalid"
}

// ChangeMode selects how Changed compares the requested kinds against an event.
type ChangeMode int

const (
	// ChangeModeAny matches when the event shares at least one kind with the query.
	ChangeModeAny ChangeMode = iota
	// ChangeModeAll matches when every requested kind is present in the event.
	ChangeModeAll
	// ChangeModeExclusive matches when the event contains nothing outside the query.
	ChangeModeExclusive
)

// ChangeSet is a set of ChangeKind values.
type ChangeSet uint32

// NewChangeSet builds a set from the given kinds.
func NewChangeSet(kinds ...ChangeKind) ChangeSet {
	var set ChangeSet
	return set.With(kinds...)
}

// With returns a copy of the set with kinds added.
func (s ChangeSet) With(kinds ...ChangeKind) ChangeSet {
	for _, kind := range kinds {
		s |= ChangeSet(kind)
	}
	return s
}

// Union merges two sets.
func (s ChangeSet) Union(other ChangeSet) ChangeSet {
	return s | other
}

// Has reports whether kind is a member of the set.
func (s ChangeSet) Has(kind ChangeKind) bool {
	return s&ChangeSet(kind) != 0
}

// Len is the number of kinds in the set.
func (s ChangeSet) Len() int {
	return bits.OnesCount32(uint32(s))
}

// IsEmpty reports whether the set has no members.
func (s ChangeSet) IsEmpty() bool {
	return s == 0
}

// Kinds lists the members in declaration order.
func (s ChangeSet) Kinds() []ChangeKind {
	kinds := make([]ChangeKind, 0, s.Len())
	for rest := uint32(s); rest != 0; rest &= rest - 1 {
		kinds = append(kinds, ChangeKind(1)<<bits.TrailingZeros32(rest))
	}
	return kinds
}

func (s ChangeSet) String() string {
	names := make([]string, 0, s.Len())
	for _, kind := range s.Kinds() {
		names = append(names, kind.String())
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Changed compares the query against the change set.
//
// In ChangeModeExclusive the synthetic Status kind stands for CherryPick, Merge and Rebase: a query
// naming any of those implicitly asks for Status too, and a query naming Status itself covers every
// one of them present in the set.
func (s ChangeSet) Changed(mode ChangeMode, kinds ...ChangeKind) bool {
	query := NewChangeSet(kinds...)

	switch mode {
	case ChangeModeAny:
		return s&query != 0 || s.Has(ChangeUnknown)
	case ChangeModeAll:
		return s&query == query
	case ChangeModeExclusive:
		changes := s
		if query.Has(ChangeStatus) {
			changes &^= statusKinds
		}
		if query&statusKinds != 0 {
			query = query.With(ChangeStatus)
		}
		return changes&^query == 0
	default:
		return false
	}
}
