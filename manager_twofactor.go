package sessionkit

import (
	"context"
)

// Verify2FA submits the second-factor code for the pending challenge. With
// no challenge anywhere (memory and mirror both empty) it fails
// immediately without a network call. On success the challenge is
// destroyed and the user re-hydrated; on failure the challenge is
// preserved so the user may retry the code without re-entering the
// password.
func (m *Manager) Verify2FA(ctx context.Context, code string) (Probe, error) {
	gen := m.begin()

	c, ok := m.mirroredChallenge(ctx)
	if !ok {
		m.metrics.inc(MetricTwoFactorFailure)
		m.commitError(gen, ErrChallengeMissing.Error(), false, false)
		return Probe{State: StateError}, ErrChallengeMissing
	}
	if c.Expired(m.now()) {
		m.metrics.inc(MetricTwoFactorFailure)
		m.commitError(gen, ErrChallengeExpired.Error(), false, false)
		m.clearMirror(ctx)
		return Probe{State: StateError}, ErrChallengeExpired
	}

	var payload verifyTwoFactorPayload
	err := m.api.post(ctx, pathVerifyTwoFactor, verifyTwoFactorRequest{
		Code:      code,
		TempToken: c.TempToken,
	}, &payload)
	if err != nil {
		m.metrics.inc(MetricTwoFactorFailure)
		m.commit(gen, func() {
			m.state = StateError
			m.errMsg = ErrorMessage(err, "two-factor verification failed")
			m.user = nil
			m.pending = &c
		})
		return Probe{State: StateError, Challenge: &c}, err
	}

	// The server consumed the challenge whether or not our commit below
	// still applies.
	m.clearMirror(ctx)

	user := m.hydrateAfter(ctx, payload.User)
	if user == nil {
		m.metrics.inc(MetricTwoFactorFailure)
		m.commitError(gen, "verification succeeded but the session could not be hydrated", false, false)
		return Probe{State: StateError}, ErrNotAuthenticated
	}

	m.metrics.inc(MetricTwoFactorSuccess)
	m.commitAuthenticated(gen, user)
	return Probe{State: StateAuthenticated, User: user}, nil
}

// Cancel2FA abandons the pending challenge: memory and mirror are cleared
// and the machine returns to anonymous. No server call is involved; the
// challenge dies on its own TTL server-side.
func (m *Manager) Cancel2FA(ctx context.Context) {
	gen := m.begin()
	m.commitAnonymous(gen)
	m.clearMirror(ctx)
}

// Toggle2FA flips the second-factor requirement for the current user and
// re-hydrates the record. A failure keeps the authenticated session and
// only records the error message.
func (m *Manager) Toggle2FA(ctx context.Context) (Probe, error) {
	gen := m.begin()

	if err := m.api.get(ctx, pathToggleTwoFactor, nil); err != nil {
		m.commitError(gen, ErrorMessage(err, "could not update two-factor settings"), false, true)
		return m.probeFromState(), err
	}

	user := m.hydrateAfter(ctx, nil)
	if user == nil {
		m.commitError(gen, "two-factor settings changed but the session could not be hydrated", false, true)
		return m.probeFromState(), ErrNotAuthenticated
	}

	m.commitAuthenticated(gen, user)
	return Probe{State: StateAuthenticated, User: user}, nil
}

// probeFromState reflects the committed state back to the caller for
// operations whose failure keeps the previous session shape.
func (m *Manager) probeFromState() Probe {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := Probe{State: m.state}
	if m.user != nil {
		u := *m.user
		p.User = &u
	}
	if m.pending != nil {
		c := *m.pending
		p.Challenge = &c
	}
	return p
}
