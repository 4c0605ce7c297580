package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request correlation ID stamped by the
// pipeline. A replay keeps the ID of the request it retries.
const RequestIDHeader = "X-Request-Id"

// Recorder receives pipeline events. Implementations must be safe for
// concurrent use; a nil Recorder disables recording.
type Recorder interface {
	RefreshStarted()
	RefreshDeduplicated()
	RefreshSucceeded()
	RefreshFailed()
	RequestReplayed()
	SessionExpired()
}

// Options configures a Transport.
type Options struct {
	// Base performs the actual round trips. Defaults to
	// http.DefaultTransport.
	Base http.RoundTripper
	// Refresh renews the session credential. When nil, expiry failures are
	// surfaced without a refresh attempt.
	Refresh RefreshFunc
	// OnSessionExpired fires when a notify-eligible request fails
	// terminally: its refresh failed, or it failed again after a replay.
	OnSessionExpired func()
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
	// Metrics receives pipeline events. Optional.
	Metrics Recorder
}

// Transport intercepts credential-expiry failures before they surface to
// the caller. On a 401 it classifies the path, funnels eligible requests
// through the single-flight [Refresher], and replays each request at most
// once. Requests whose failure is inherent to the call itself (bad login,
// bad code, dead refresh token) pass through untouched and never raise the
// session-expired signal.
type Transport struct {
	base      http.RoundTripper
	refresher *Refresher
	notify    func()
	log       zerolog.Logger
	rec       Recorder
}

// New builds the request pipeline.
func New(opts Options) *Transport {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	t := &Transport{
		base:   base,
		notify: opts.OnSessionExpired,
		log:    log,
		rec:    opts.Metrics,
	}
	if opts.Refresh != nil {
		t.refresher = NewRefresher(opts.Refresh, log, opts.Metrics)
	}
	return t
}

// Refresh runs, or joins, the single in-flight credential refresh. It is
// exposed so hosts can force a renewal without waiting for a request to
// fail.
func (t *Transport) Refresh(ctx context.Context) error {
	if t.refresher == nil {
		return fmt.Errorf("transport: no refresh operation configured")
	}
	return t.refresher.Do(ctx)
}

type retriedKey struct{}

// Retried reports whether the request is a replay issued after a refresh.
func Retried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = t.prepare(req)

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	pol := Classify(req.URL.String())
	reqLog := t.log.With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Logger()

	if Retried(req.Context()) {
		// Already replayed once after a refresh; a second expiry failure
		// means the session is beyond saving.
		reqLog.Debug().Msg("replayed request failed again")
		t.signalExpired(pol)
		return resp, nil
	}

	if !pol.Retryable {
		reqLog.Debug().Msg("expiry failure on non-retryable endpoint, passing through")
		return resp, nil
	}

	if t.refresher == nil {
		t.signalExpired(pol)
		return resp, nil
	}

	if rerr := t.refresher.Do(req.Context()); rerr != nil {
		reqLog.Debug().Err(rerr).Msg("credential refresh failed")
		t.signalExpired(pol)
		return resp, nil
	}

	replay, rerr := replayRequest(req)
	if rerr != nil {
		reqLog.Debug().Err(rerr).Msg("request body not replayable")
		return resp, nil
	}

	drain(resp)
	if t.rec != nil {
		t.rec.RequestReplayed()
	}
	reqLog.Debug().Msg("replaying request after refresh")
	return t.RoundTrip(replay)
}

// prepare clones the request (RoundTrippers must not mutate their input),
// stamps a correlation ID, and makes the body rewindable so a replay can
// resend it.
func (t *Transport) prepare(req *http.Request) *http.Request {
	out := req.Clone(req.Context())
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}

	if out.Body != nil && out.GetBody == nil {
		buf, err := io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			// Leave the dead body in place; the base transport reports it.
			return out
		}
		out.Body = io.NopCloser(bytes.NewReader(buf))
		out.ContentLength = int64(len(buf))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	}
	return out
}

func replayRequest(req *http.Request) (*http.Request, error) {
	out := req.Clone(context.WithValue(req.Context(), retriedKey{}, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return out, nil
}

func (t *Transport) signalExpired(pol Policy) {
	if !pol.NotifyEligible {
		return
	}
	if t.rec != nil {
		t.rec.SessionExpired()
	}
	if t.notify != nil {
		t.notify()
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
