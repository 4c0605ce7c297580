package sessionkit

import (
	"errors"
	"net/http"
	"net/url"
	"time"
)

// Config carries the Manager's tunables. Instances are read during
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	// BaseURL is the remote API root, e.g. "https://api.example.com".
	// Required.
	BaseURL string

	// RequestTimeout bounds every individual remote call, replay included.
	RequestTimeout time.Duration

	// Transport performs the actual round trips underneath the pipeline.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// CookieJar holds the session cookie. Defaults to a fresh in-memory
	// jar; hosts that persist cookies supply their own.
	CookieJar http.CookieJar

	// ProbeOnBuild runs the initial authentication probe synchronously
	// during Build, so the Manager comes up already settled.
	ProbeOnBuild bool

	// ProbeTimeout bounds the build-time probe.
	ProbeTimeout time.Duration

	// Metrics toggles counter collection.
	Metrics MetricsConfig
}

func defaultConfig() Config {
	return Config{
		RequestTimeout: 15 * time.Second,
		ProbeTimeout:   10 * time.Second,
	}
}

func (c Config) validate() (*url.URL, error) {
	if c.BaseURL == "" {
		return nil, errors.New("config: BaseURL is required")
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, errors.New("config: BaseURL is not a valid URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("config: BaseURL must be http or https")
	}
	if c.RequestTimeout < 0 || c.ProbeTimeout < 0 {
		return nil, errors.New("config: timeouts must not be negative")
	}
	return base, nil
}
