package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	started atomic.Int64
	deduped atomic.Int64
	success atomic.Int64
	failed  atomic.Int64
	replays atomic.Int64
	expired atomic.Int64
}

func (r *countingRecorder) RefreshStarted()      { r.started.Add(1) }
func (r *countingRecorder) RefreshDeduplicated() { r.deduped.Add(1) }
func (r *countingRecorder) RefreshSucceeded()    { r.success.Add(1) }
func (r *countingRecorder) RefreshFailed()       { r.failed.Add(1) }
func (r *countingRecorder) RequestReplayed()     { r.replays.Add(1) }
func (r *countingRecorder) SessionExpired()      { r.expired.Add(1) }

func TestRefresherDeduplicatesConcurrentCallers(t *testing.T) {
	var calls atomic.Int64
	rec := &countingRecorder{}
	ref := NewRefresher(func(ctx context.Context) error {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return nil
	}, zerolog.Nop(), rec)

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, ref.Do(context.Background()))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load(), "one shared refresh for the burst")
	assert.EqualValues(t, 1, rec.started.Load())
	assert.EqualValues(t, n-1, rec.deduped.Load())
	assert.EqualValues(t, 1, rec.success.Load())
}

func TestRefresherReleasesHandleAfterSettle(t *testing.T) {
	var calls atomic.Int64
	boom := errors.New("refresh rejected")
	ref := NewRefresher(func(ctx context.Context) error {
		calls.Add(1)
		return boom
	}, zerolog.Nop(), nil)

	require.ErrorIs(t, ref.Do(context.Background()), boom)
	require.ErrorIs(t, ref.Do(context.Background()), boom)
	assert.EqualValues(t, 2, calls.Load(), "a settled handle must never be reused")
}

func TestRefresherWaiterStopsOnContextCancel(t *testing.T) {
	release := make(chan struct{})
	ref := NewRefresher(func(ctx context.Context) error {
		<-release
		return nil
	}, zerolog.Nop(), nil)

	// Occupy the flight.
	go func() { _ = ref.Do(context.Background()) }()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ref.Do(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
}
