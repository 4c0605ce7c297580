package transport

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// refreshKey is the sole singleflight key: there is one credential per
// transport, so there is one refresh to share.
const refreshKey = "refresh"

// RefreshFunc performs one remote credential refresh.
type RefreshFunc func(ctx context.Context) error

// Refresher deduplicates concurrent refresh attempts into a single
// in-flight call. Callers that observe an expiry failure while a refresh
// is running wait on the shared call instead of starting their own; the
// shared handle is released the instant the call settles, success or
// failure, so the next failure afterwards starts a fresh refresh.
//
// A Refresher is owned by its Transport, not shared globally, so separate
// pipelines (and separate tests) never observe each other's refreshes.
type Refresher struct {
	group   singleflight.Group
	refresh RefreshFunc
	log     zerolog.Logger
	rec     Recorder
}

// NewRefresher wraps fn in single-flight coordination.
func NewRefresher(fn RefreshFunc, log zerolog.Logger, rec Recorder) *Refresher {
	return &Refresher{refresh: fn, log: log, rec: rec}
}

// Do runs, or joins, the single in-flight refresh. The refresh itself is
// detached from any one caller's context: a waiter giving up must not
// cancel the call the others still share. The waiter's own ctx only bounds
// how long it waits.
func (r *Refresher) Do(ctx context.Context) error {
	initiated := false
	ch := r.group.DoChan(refreshKey, func() (any, error) {
		initiated = true
		if r.rec != nil {
			r.rec.RefreshStarted()
		}
		err := r.refresh(context.WithoutCancel(ctx))
		if r.rec != nil {
			if err != nil {
				r.rec.RefreshFailed()
			} else {
				r.rec.RefreshSucceeded()
			}
		}
		return nil, err
	})

	select {
	case res := <-ch:
		if !initiated {
			if r.rec != nil {
				r.rec.RefreshDeduplicated()
			}
			r.log.Debug().Msg("joined in-flight credential refresh")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}
