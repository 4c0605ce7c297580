// Package sessionkit coordinates a client session against a remote
// cookie-authenticated API: it maintains the authentication state machine
// (anonymous, checking, pending_2fa, authenticated, error), transparently
// refreshes an expired credential exactly once per failure without
// duplicating refresh calls across concurrent requests, and mirrors the
// one sliver of state that must survive a host restart (an in-progress
// two-factor challenge) while never persisting a long-lived credential.
//
// # Architecture boundaries
//
// sessionkit is the public surface: [Manager], [Builder], [Config], and
// value types. The request pipeline lives in transport/ (an
// http.RoundTripper wrapping every call, with a single-flight refresh
// coordinator owned per pipeline instance, never global). Challenge
// mirroring lives in challenge/ with in-memory and Redis-backed stores.
// Envelope decoding is internal.
//
// # What this package must NOT do
//
//   - Make authorization decisions; permissions are read from the hydrated
//     [User] by the host.
//   - Generate or validate second-factor codes; that is server-side.
//   - Store access or refresh credentials anywhere; the session cookie is
//     owned by the http.Client's jar and is opaque to this package.
//
// # Concurrency contract
//
// All Manager methods are safe for concurrent use. For any burst of
// concurrently issued requests failing on an expired credential, the
// refresh endpoint is called exactly once and each request is replayed at
// most once. Operation completions are fenced by a generation counter, so
// a slow stale probe never overwrites the result of a newer login.
package sessionkit
