// Package revocation holds the denylist of credentials that are still
// structurally valid but must be rejected.
//
// Entries are keyed by token id, session id or subject id and carry the
// time after which they no longer matter (the credential's own expiry).
// Backends only need to keep an entry until then; eviction is a memory
// bound, not a safety property.
package revocation

import (
	"context"
	"errors"
	"time"
)

type Reason string

const (
	ReasonRotated       Reason = "rotated"
	ReasonLogout        Reason = "logout"
	ReasonReuseDetected Reason = "reuse-detected"
	ReasonAdminRevoke   Reason = "admin-revoke"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonRotated, ReasonLogout, ReasonReuseDetected, ReasonAdminRevoke:
		return true
	default:
		return false
	}
}

// Entry is a single revocation record.
type Entry struct {
	Key           string    `json:"key"`
	Reason        Reason    `json:"reason"`
	RevokedAt     time.Time `json:"revoked_at"`
	NaturalExpiry time.Time `json:"natural_expiry"`
}

// Live reports whether the entry still needs to be enforced at now.
func (e Entry) Live(now time.Time) bool {
	return now.Before(e.NaturalExpiry)
}

// Store is the revocation capability shared by the rotator (writer) and
// the resource guard (reader). Implementations must be safe for
// concurrent use.
type Store interface {
	// Revoke inserts e unless a live entry already exists for e.Key.
	// It reports whether this call created the entry.
	Revoke(ctx context.Context, e Entry) (bool, error)
	// Put writes e unless a live entry for e.Key was revoked later.
	// Administrative revocations use it so a repeat action moves the
	// cutoff forward.
	Put(ctx context.Context, e Entry) error
	// Lookup returns the live entries found among keys, in key order.
	Lookup(ctx context.Context, keys ...string) ([]Entry, error)
}

// Sweeper is implemented by backends that need explicit eviction.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

var (
	ErrInvalidEntry  = errors.New("revocation: invalid entry")
	ErrNotConfigured = errors.New("revocation: backend not configured")
)

func TokenKey(tokenID string) string     { return "token:" + tokenID }
func SessionKey(sessionID string) string { return "session:" + sessionID }
func SubjectKey(subjectID string) string { return "subject:" + subjectID }

// supersedes reports whether e should replace cur at now.
func supersedes(e, cur Entry, now time.Time) bool {
	return !cur.Live(now) || e.RevokedAt.After(cur.RevokedAt)
}

func validate(e Entry) error {
	if e.Key == "" || !e.Reason.Valid() || e.NaturalExpiry.IsZero() {
		return ErrInvalidEntry
	}
	return nil
}
