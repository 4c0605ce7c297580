package sessionkit

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeMissing is returned when a two-factor operation runs with
	// no pending challenge in memory or in the mirror store.
	ErrChallengeMissing = errors.New("two-factor challenge missing")
	// ErrChallengeExpired is returned when the pending challenge's expiry
	// has passed before the code was submitted.
	ErrChallengeExpired = errors.New("two-factor challenge expired")
	// ErrNotAuthenticated is returned by operations that require an
	// authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired is reported when a credential refresh fails and the
	// server session is considered gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
)

// APIError is a failed remote call: a non-2xx status or an envelope with
// success=false. Message carries the server-provided message verbatim when
// one was present, or a generic fallback.
type APIError struct {
	Status  int
	Path    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s: %s (status %d)", e.Path, e.Message, e.Status)
	}
	return fmt.Sprintf("api %s: request failed (status %d)", e.Path, e.Status)
}

// ErrorMessage extracts the user-facing message from an operation error:
// the server-provided message when the error is an [APIError] carrying one,
// the error text otherwise, and fallback for nil errors.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
