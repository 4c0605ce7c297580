package sessionkit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Litwebs/sessionkit/challenge"
	"github.com/Litwebs/sessionkit/transport"
	"github.com/rs/zerolog"
)

// Probe is the typed outcome of a session operation: which state the
// operation reached, plus the user or challenge backing it. Exactly one of
// User and Challenge is set in the pending/authenticated states; both are
// nil otherwise.
type Probe struct {
	State     State
	User      *User
	Challenge *challenge.Challenge
}

// Snapshot is a point-in-time copy of the session. Exactly one of
// {User set}, {Challenge set}, {both nil} holds; Error may accompany any
// of the three shapes.
type Snapshot struct {
	State     State
	Loading   bool
	Error     string
	User      *User
	Challenge *challenge.Challenge
}

// Authenticated reports whether the snapshot carries a hydrated user.
func (s Snapshot) Authenticated() bool {
	return s.User != nil
}

// Manager is the authoritative session state machine. It owns the current
// authentication snapshot and performs every transition through the
// request pipeline. Construct it once per application via [Builder] and
// pass it by reference; all methods are safe for concurrent use.
//
// Concurrent operations are fenced by a generation counter: every
// state-mutating operation bumps the generation when it starts and its
// completion only applies if no newer operation started meanwhile. A slow,
// stale probe can therefore never overwrite the result of a fresh login.
type Manager struct {
	mu      sync.Mutex
	gen     uint64
	state   State
	loading bool
	errMsg  string
	user    *User
	pending *challenge.Challenge

	api      *apiClient
	pipeline *transport.Transport
	store    challenge.Store
	log      zerolog.Logger
	metrics  *Metrics
	now      func() time.Time

	onSessionExpired func()
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:   m.state,
		Loading: m.loading,
		Error:   m.errMsg,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	if m.pending != nil {
		c := *m.pending
		snap.Challenge = &c
	}
	return snap
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// MetricsSnapshot copies the manager's counters.
func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// HTTPClient returns the pipeline-backed client. Host code issues its own
// API calls through it so they share the session cookie, the single-flight
// refresh, and the replay-once behavior.
func (m *Manager) HTTPClient() *http.Client {
	return m.api.http
}

// begin starts a state-mutating operation: it supersedes any older
// in-flight operation and moves the machine to checking.
func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = StateChecking
	m.loading = true
	m.errMsg = ""
	return m.gen
}

// commit applies a completion unless a newer operation superseded it.
func (m *Manager) commit(gen uint64, apply func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.metrics.inc(MetricStaleCompletionDropped)
		m.log.Debug().Uint64("gen", gen).Uint64("current", m.gen).
			Msg("discarding stale operation completion")
		return false
	}
	m.loading = false
	apply()
	m.log.Debug().Stringer("state", m.state).Msg("session state transition")
	return true
}

func (m *Manager) commitAuthenticated(gen uint64, user *User) bool {
	return m.commit(gen, func() {
		m.state = StateAuthenticated
		m.user = user
		m.pending = nil
		m.errMsg = ""
	})
}

func (m *Manager) commitPending(gen uint64, c challenge.Challenge) bool {
	return m.commit(gen, func() {
		m.state = StatePendingTwoFactor
		m.user = nil
		m.pending = &c
		m.errMsg = ""
	})
}

func (m *Manager) commitAnonymous(gen uint64) bool {
	return m.commit(gen, func() {
		m.state = StateAnonymous
		m.user = nil
		m.pending = nil
		m.errMsg = ""
	})
}

// commitError records a failed operation. keepPending preserves the
// two-factor challenge so the user may retry a code without re-entering
// the password; keepUser preserves an authenticated session whose
// self-service call failed.
func (m *Manager) commitError(gen uint64, msg string, keepPending, keepUser bool) bool {
	return m.commit(gen, func() {
		m.state = StateError
		m.errMsg = msg
		if !keepPending {
			m.pending = nil
		}
		if keepUser && m.user != nil {
			m.state = StateAuthenticated
		} else if !keepUser {
			m.user = nil
		}
	})
}

// handleSessionExpired is wired into the pipeline's session-expired signal.
// It drops the authenticated user, leaves a pending challenge alone (the
// challenge never depended on the dead credential), and then invokes the
// host's hook.
func (m *Manager) handleSessionExpired() {
	m.mu.Lock()
	m.gen++
	wasAuthenticated := m.user != nil
	m.user = nil
	m.loading = false
	m.errMsg = ""
	if m.pending != nil {
		m.state = StatePendingTwoFactor
	} else {
		m.state = StateAnonymous
	}
	m.mu.Unlock()

	if wasAuthenticated {
		m.log.Info().Msg("session expired, dropping to anonymous")
	}
	if m.onSessionExpired != nil {
		m.onSessionExpired()
	}
}

// mirroredChallenge finds the pending challenge, preferring memory over
// the mirror store. Expired records count as absent.
func (m *Manager) mirroredChallenge(ctx context.Context) (challenge.Challenge, bool) {
	m.mu.Lock()
	p := m.pending
	m.mu.Unlock()

	if p != nil && !p.Empty() && !p.Expired(m.now()) {
		return *p, true
	}

	c, ok, err := m.store.Load(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("challenge mirror load failed")
		return challenge.Challenge{}, false
	}
	return c, ok
}

// saveMirror mirrors a challenge; store failures degrade to memory-only.
func (m *Manager) saveMirror(ctx context.Context, c challenge.Challenge) {
	if err := m.store.Save(ctx, c); err != nil {
		m.log.Warn().Err(err).Int("token_len", len(c.TempToken)).
			Msg("challenge mirror save failed, keeping challenge in memory only")
	}
}

// clearMirror clears the store; the in-memory copy is cleared by commits.
func (m *Manager) clearMirror(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("challenge mirror clear failed")
	}
}

// refreshCredential is the pipeline's refresh operation. It runs through
// the normal client so the credential cookie travels with it; the refresh
// path itself is classified non-retryable, so a failing refresh can never
// recurse into another refresh.
func (m *Manager) refreshCredential(ctx context.Context) error {
	return m.api.post(ctx, pathRefresh, nil, nil)
}

// Refresh forces a credential renewal through the single-flight
// coordinator, then re-probes the session.
func (m *Manager) Refresh(ctx context.Context) (Probe, error) {
	if err := m.pipeline.Refresh(ctx); err != nil {
		probe, _ := m.CheckAuthentication(ctx)
		return probe, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	return m.CheckAuthentication(ctx)
}
