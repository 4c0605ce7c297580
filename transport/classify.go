// Package transport wraps every outgoing request so that a credential-expiry
// failure is refreshed and replayed exactly once, with at most one refresh
// call in flight no matter how many requests fail concurrently.
package transport

import (
	"net/url"
	"strings"
)

// Policy is the classifier's decision for one request path.
type Policy struct {
	// Retryable means an expiry failure may trigger a refresh and one
	// replay.
	Retryable bool
	// NotifyEligible means a terminal expiry failure raises the global
	// session-expired signal.
	NotifyEligible bool
}

const authMarker = "/auth/"

// authDenylist holds the auth routes whose failure is inherent to the
// attempt itself: refreshing cannot help, and the caller owns the error
// message. Keys are the path remainder after the "/auth/" marker.
var authDenylist = map[string]struct{}{
	"login":                 {},
	"refresh":               {},
	"logout":                {},
	"2fa/verify":            {},
	"forgot-password":       {},
	"reset-password":        {},
	"reset-password/verify": {},
}

// Classify maps a request path to its retry/notify policy. Absolute URLs
// and query strings are tolerated; when an "/auth/" marker is present,
// classification starts at the marker. Every path outside the denylist,
// including every non-auth application endpoint, is retryable and
// notify-eligible.
func Classify(rawPath string) Policy {
	path := normalizePath(rawPath)

	idx := strings.Index(path, authMarker)
	if idx < 0 {
		return Policy{Retryable: true, NotifyEligible: true}
	}

	rest := strings.Trim(path[idx+len(authMarker):], "/")
	if _, denied := authDenylist[rest]; denied {
		return Policy{}
	}
	return Policy{Retryable: true, NotifyEligible: true}
}

func normalizePath(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}
	// Unparseable input: strip the query by hand and classify what's left.
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
