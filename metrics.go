package sessionkit

import "sync/atomic"

// MetricID identifies one counter tracked by [Metrics].
type MetricID uint8

const (
	// MetricLoginSuccess counts logins that reached the authenticated state.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricTwoFactorRequired counts logins answered with a challenge.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts verified challenges.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts rejected verification codes.
	MetricTwoFactorFailure
	// MetricRefreshAttempt counts refresh calls actually sent. Deduplicated
	// callers do not add to this counter.
	MetricRefreshAttempt
	// MetricRefreshDeduped counts callers that joined an in-flight refresh
	// instead of starting their own.
	MetricRefreshDeduped
	// MetricRefreshSuccess counts refreshes the server accepted.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes the server rejected.
	MetricRefreshFailure
	// MetricRequestReplayed counts requests replayed after a refresh.
	MetricRequestReplayed
	// MetricSessionExpired counts global session-expired signals.
	MetricSessionExpired
	// MetricLogout counts logouts.
	MetricLogout
	// MetricStaleCompletionDropped counts operation completions discarded
	// because a newer operation started meanwhile.
	MetricStaleCompletionDropped

	metricIDCount
)

// MetricsConfig toggles counter collection.
type MetricsConfig struct {
	Enabled bool
}

// Metrics is a fixed set of atomic counters. All methods are safe for
// concurrent use and no-ops when collection is disabled or the receiver is
// nil.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics builds a counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}

// The methods below satisfy transport.Recorder.

// RefreshStarted records a refresh call actually sent.
func (m *Metrics) RefreshStarted() { m.inc(MetricRefreshAttempt) }

// RefreshDeduplicated records a caller joining an in-flight refresh.
func (m *Metrics) RefreshDeduplicated() { m.inc(MetricRefreshDeduped) }

// RefreshSucceeded records an accepted refresh.
func (m *Metrics) RefreshSucceeded() { m.inc(MetricRefreshSuccess) }

// RefreshFailed records a rejected refresh.
func (m *Metrics) RefreshFailed() { m.inc(MetricRefreshFailure) }

// RequestReplayed records a post-refresh replay.
func (m *Metrics) RequestReplayed() { m.inc(MetricRequestReplayed) }

// SessionExpired records a global session-expired signal.
func (m *Metrics) SessionExpired() { m.inc(MetricSessionExpired) }
