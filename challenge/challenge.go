// Package challenge holds the pending two-factor challenge and its mirror
// stores. A challenge is the only authentication artifact the coordinator
// ever persists: an opaque, short-lived, low-privilege token proving the
// first factor passed. Long-lived credentials are never written anywhere;
// they live in the transport's own cookie jar, opaque to this package.
package challenge

import (
	"context"
	"errors"
	"time"
)

// Challenge is an in-progress two-factor login: the temporary token issued
// after password verification plus its expiry. ExpiresAt may be zero when
// the server did not communicate one.
type Challenge struct {
	TempToken string
	ExpiresAt time.Time
}

// Empty reports whether no challenge is present.
func (c Challenge) Empty() bool {
	return c.TempToken == ""
}

// Expired reports whether the challenge's expiry has passed. A zero
// ExpiresAt never expires locally; the server remains the authority.
func (c Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// ErrStoreUnavailable wraps backend failures of a mirror store.
var ErrStoreUnavailable = errors.New("challenge store unavailable")

// Store mirrors a pending challenge so a host restart mid-challenge can
// resume the flow instead of silently dropping back to a login form.
// Implementations must treat an expired record as absent.
type Store interface {
	// Save replaces the mirrored challenge.
	Save(ctx context.Context, c Challenge) error
	// Load returns the mirrored challenge, or ok=false when none survives.
	Load(ctx context.Context) (c Challenge, ok bool, err error)
	// Clear removes the mirrored challenge. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}
