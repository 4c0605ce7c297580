package sessionkit

import "context"

// Logout ends the session. The server call is best-effort: whatever it
// answers, local state and the challenge mirror are cleared and the
// machine lands in anonymous. The user's intent to leave always succeeds
// locally, so Logout never returns an error.
func (m *Manager) Logout(ctx context.Context) {
	gen := m.begin()

	if err := m.api.get(ctx, pathLogout, nil); err != nil {
		m.log.Debug().Err(err).Msg("server logout failed, clearing local state anyway")
	}

	m.metrics.inc(MetricLogout)
	if !m.commitAnonymous(gen) {
		// Even when superseded, leaving must win: force the cleared state.
		m.mu.Lock()
		m.gen++
		m.state = StateAnonymous
		m.loading = false
		m.errMsg = ""
		m.user = nil
		m.pending = nil
		m.mu.Unlock()
	}
	m.clearMirror(ctx)
}
