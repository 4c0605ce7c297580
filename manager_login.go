package sessionkit

import (
	"context"
	"time"

	"github.com/Litwebs/sessionkit/challenge"
)

// Login authenticates with the first factor. Three outcomes:
//
//   - the server demands a second factor: the challenge is stored (memory
//     plus mirror) and the machine moves to pending_2fa;
//   - direct success: the full user is re-hydrated via self-fetch and the
//     machine moves to authenticated;
//   - failure: the machine moves to error carrying the server's message,
//     and any prior pending challenge is cleared.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) (Probe, error) {
	gen := m.begin()

	var payload loginPayload
	err := m.api.post(ctx, pathLogin, loginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
	}, &payload)
	if err != nil {
		m.metrics.inc(MetricLoginFailure)
		m.commitError(gen, ErrorMessage(err, "login failed"), false, false)
		m.clearMirror(ctx)
		return Probe{State: StateError}, err
	}

	if payload.Requires2FA {
		c := challenge.Challenge{TempToken: payload.TempToken}
		if payload.ExpiresAt != "" {
			if at, perr := time.Parse(time.RFC3339, payload.ExpiresAt); perr == nil {
				c.ExpiresAt = at
			}
		}
		if c.ExpiresAt.IsZero() {
			if at, ok := challenge.ExpiryFromToken(c.TempToken); ok {
				c.ExpiresAt = at
			}
		}

		m.metrics.inc(MetricTwoFactorRequired)
		if m.commitPending(gen, c) {
			m.saveMirror(ctx, c)
		}
		return Probe{State: StatePendingTwoFactor, Challenge: &c}, nil
	}

	user := m.hydrateAfter(ctx, payload.User)
	if user == nil {
		m.metrics.inc(MetricLoginFailure)
		m.commitError(gen, "login succeeded but the session could not be hydrated", false, false)
		m.clearMirror(ctx)
		return Probe{State: StateError}, ErrNotAuthenticated
	}

	m.metrics.inc(MetricLoginSuccess)
	m.commitAuthenticated(gen, user)
	m.clearMirror(ctx)
	return Probe{State: StateAuthenticated, User: user}, nil
}
