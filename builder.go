package sessionkit

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Litwebs/sessionkit/challenge"
	"github.com/Litwebs/sessionkit/transport"
	"github.com/rs/zerolog"
)

// Builder assembles a [Manager]. Configure, then call Build exactly once.
type Builder struct {
	config Config
	store  challenge.Store
	log    zerolog.Logger

	onSessionExpired func()

	built bool
}

// New starts a Builder with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		log:    zerolog.Nop(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the remote API root.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithChallengeStore sets the two-factor challenge mirror. Defaults to a
// process-scoped in-memory store.
func (b *Builder) WithChallengeStore(store challenge.Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// WithHTTPTransport sets the base round tripper underneath the pipeline.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// WithCookieJar sets the jar holding the session cookie.
func (b *Builder) WithCookieJar(jar http.CookieJar) *Builder {
	b.config.CookieJar = jar
	return b
}

// WithSessionExpiredHook registers the host's reaction to the global
// session-expired signal (typically a redirect to the login screen). The
// Manager has already dropped its own state when the hook runs.
func (b *Builder) WithSessionExpiredHook(fn func()) *Builder {
	b.onSessionExpired = fn
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithProbeOnBuild makes Build run the initial authentication probe before
// returning.
func (b *Builder) WithProbeOnBuild(enabled bool) *Builder {
	b.config.ProbeOnBuild = enabled
	return b
}

// Build wires the Manager, its pipeline, and its stores. When
// ProbeOnBuild is set the initial probe runs synchronously; its outcome
// lands in the Manager's state and never fails the build.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	base, err := b.config.validate()
	if err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		store = challenge.NewMemoryStore()
	}

	m := &Manager{
		state:            StateAnonymous,
		store:            store,
		log:              b.log,
		metrics:          NewMetrics(b.config.Metrics),
		now:              time.Now,
		onSessionExpired: b.onSessionExpired,
	}

	m.pipeline = transport.New(transport.Options{
		Base:             b.config.Transport,
		Refresh:          m.refreshCredential,
		OnSessionExpired: m.handleSessionExpired,
		Logger:           &b.log,
		Metrics:          m.metrics,
	})

	jar := b.config.CookieJar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
	}

	m.api = &apiClient{
		base: base,
		http: &http.Client{
			Transport: m.pipeline,
			Jar:       jar,
			Timeout:   b.config.RequestTimeout,
		},
		log: b.log,
	}

	if b.config.ProbeOnBuild {
		ctx, cancel := context.WithTimeout(context.Background(), b.config.ProbeTimeout)
		defer cancel()
		if _, perr := m.CheckAuthentication(ctx); perr != nil {
			b.log.Warn().Err(perr).Msg("initial authentication probe failed")
		}
	}

	return m, nil
}
