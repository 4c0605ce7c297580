package sessionkit

import (
	"context"
	"errors"
)

// CheckAuthentication probes the remote session endpoint and settles the
// machine into authenticated, pending_2fa, or anonymous. A clean
// unauthenticated answer is a result, not an error; the returned error is
// non-nil only when the probe itself could not be completed (network
// failure, undecodable response).
//
// A payload too sparse to be trusted for permission-bearing UI triggers a
// silent self-fetch before authenticated is declared. An unauthenticated
// answer while a mirrored two-factor challenge survives resumes
// pending_2fa instead of discarding the challenge.
func (m *Manager) CheckAuthentication(ctx context.Context) (Probe, error) {
	gen := m.begin()

	var payload probePayload
	err := m.api.get(ctx, pathAuthenticated, &payload)

	if err == nil && payload.Authenticated {
		user := payload.User
		if !user.Complete() {
			hydrated, herr := m.fetchSelf(ctx)
			if herr != nil {
				m.log.Debug().Err(herr).Msg("probe hydration failed")
				err = herr
				user = nil
			} else {
				user = hydrated
			}
		}
		if user.Complete() {
			m.commitAuthenticated(gen, user)
			return Probe{State: StateAuthenticated, User: user}, nil
		}
	}

	// A server answer, even a rejecting one, is a clean unauthenticated
	// result. Anything else is a real failure the caller may care about.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		err = nil
	}

	if c, ok := m.mirroredChallenge(ctx); ok {
		m.commitPending(gen, c)
		return Probe{State: StatePendingTwoFactor, Challenge: &c}, err
	}

	m.commitAnonymous(gen)
	return Probe{State: StateAnonymous}, err
}

// fetchSelf hydrates the full user record.
func (m *Manager) fetchSelf(ctx context.Context) (*User, error) {
	var user User
	if err := m.api.get(ctx, pathMe, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// hydrateAfter re-fetches the full user after an operation that changed
// the session. The operation's own payload is only trusted as a fallback,
// and only when it is complete: login and verification responses may omit
// permission data.
func (m *Manager) hydrateAfter(ctx context.Context, fallback *User) *User {
	hydrated, err := m.fetchSelf(ctx)
	if err == nil && hydrated.Complete() {
		return hydrated
	}
	if err != nil {
		m.log.Debug().Err(err).Msg("post-operation hydration failed")
	}
	if fallback.Complete() {
		return fallback
	}
	return nil
}
