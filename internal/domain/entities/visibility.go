package entities

import "time"

// DefaultVisibilityTTL is how long a persisted visibility stays trusted.
const DefaultVisibilityTTL = 30 * 24 * time.Hour

// Visibility says whether a repository's hosted copy is public, private or absent.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityLocal   Visibility = "local"
	// VisibilityMixed only appears when aggregating several repositories.
	VisibilityMixed Visibility = "mixed"
)

// VisibilityInfo is the persisted form of a computed visibility.
type VisibilityInfo struct {
	Visibility Visibility `yaml:"visibility"`
	// Timestamp is in Unix milliseconds.
	Timestamp int64 `yaml:"timestamp"`
	// RemotesHash is the identity of the public remote, or the fingerprint of every remote when private.
	RemotesHash string `yaml:"remotes_hash"`
}

// NewVisibilityInfo stamps v with now.
func NewVisibilityInfo(v Visibility, remotesHash string, now time.Time) VisibilityInfo {
	return VisibilityInfo{Visibility: v, Timestamp: now.UnixMilli(), RemotesHash: remotesHash}
}

// Expired reports whether the entry is older than ttl.
func (v VisibilityInfo) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(time.UnixMilli(v.Timestamp)) > ttl
}

// StillValid re-validates a persisted entry against the repository's current remotes.
func (v VisibilityInfo) StillValid(remotes []Remote) bool {
	switch v.Visibility {
	case VisibilityPublic:
		for _, remote := range remotes {
			if RemoteIdentity(remote) == v.RemotesHash {
				return true
			}
		}
		return false
	case VisibilityPrivate:
		return RemotesFingerprint(remotes) == v.RemotesHash
	default:
		return false
	}
}

// AggregateVisibility folds per-repository visibilities: a single category wins, otherwise mixed.
func AggregateVisibility(visibilities ...Visibility) Visibility {
	if len(visibilities) == 0 {
		return VisibilityLocal
	}
	first := visibilities[0]
	for _, v := range visibilities[1:] {
		if v != first {
			return VisibilityMixed
		}
	}
	return first
}
