package sessionkit

import (
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// The single-flight invariant end to end: a burst of concurrent requests
// that all hit an expired credential produces exactly one refresh call,
// and every request is replayed at most once.
func TestConcurrentExpirySingleRefresh(t *testing.T) {
	const n = 16

	var (
		refreshCalls atomic.Int64
		refreshed    atomic.Bool
		orderCalls   atomic.Int64
		arrivals     atomic.Int64
	)
	allIn := make(chan struct{})

	mux := newCountingMux()
	mux.handle(pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		time.Sleep(100 * time.Millisecond) // hold the window open
		refreshed.Store(true)
		writeSuccess(t, w, nil)
	})
	mux.handle("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		orderCalls.Add(1)
		if !refreshed.Load() {
			// Gate the first wave so all expiry failures land in the same
			// window.
			if arrivals.Add(1) == n {
				close(allIn)
			}
			<-allIn
			writeFailure(t, w, http.StatusUnauthorized, "token expired")
			return
		}
		writeSuccess(t, w, map[string]any{"orders": []any{}})
	})

	m, _ := newTestManager(t, mux)
	client := m.HTTPClient()
	base := m.api.base.String()

	var wg sync.WaitGroup
	wg.Add(n)
	statuses := make(chan int, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, base+"/api/orders", nil)
			if err != nil {
				t.Error(err)
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		if status != http.StatusOK {
			t.Fatalf("expected every burst request to succeed after replay, got %d", status)
		}
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh for the burst, got %d", got)
	}
	if got := orderCalls.Load(); got > 2*n {
		t.Fatalf("requests replayed more than once: %d calls for %d requests", got, n)
	}

	snap := m.MetricsSnapshot()
	if snap.Counters[MetricRefreshAttempt] != 1 {
		t.Fatalf("expected one counted refresh attempt, got %d", snap.Counters[MetricRefreshAttempt])
	}
	if snap.Counters[MetricRefreshDeduped] == 0 {
		t.Fatal("expected deduplicated callers in a 16-way burst")
	}
}

// After a failed refresh, the coordinator must not stay stuck on the
// settled handle: the next expiry failure starts a fresh refresh.
func TestFailedRefreshDoesNotStickCoordinator(t *testing.T) {
	var refreshCalls atomic.Int64

	mux := newCountingMux()
	mux.handle(pathRefresh, func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		writeFailure(t, w, http.StatusUnauthorized, "refresh token expired")
	})
	mux.handle("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(t, w, http.StatusUnauthorized, "token expired")
	})

	m, _ := newTestManager(t, mux)
	client := m.HTTPClient()
	base := m.api.base.String()

	for i := 0; i < 2; i++ {
		resp, err := client.Get(base + "/api/orders")
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected surfaced 401, got %d", resp.StatusCode)
		}
	}

	if got := refreshCalls.Load(); got != 2 {
		t.Fatalf("expected a fresh refresh per independent failure, got %d", got)
	}
	if got := m.MetricsSnapshot().Counters[MetricSessionExpired]; got != 2 {
		t.Fatalf("expected the session-expired signal per terminal failure, got %d", got)
	}
}
