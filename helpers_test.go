package sessionkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Litwebs/sessionkit/challenge"
)

// completeUser is a hydrated record that passes the completeness check.
func completeUser() map[string]any {
	return map[string]any{
		"id":    "u1",
		"email": "alice@example.com",
		"name":  "Alice",
		"role": map[string]any{
			"id":          "r1",
			"name":        "admin",
			"permissions": []string{"orders:read", "orders:write"},
		},
		"status":           "active",
		"twoFactorEnabled": true,
	}
}

// sparseUser is missing the name, so it must never be trusted as
// authenticated without hydration.
func sparseUser() map[string]any {
	return map[string]any{
		"id":    "u1",
		"email": "alice@example.com",
	}
}

func writeSuccess(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	writeEnvelope(t, w, http.StatusOK, true, data, "")
}

func writeFailure(t *testing.T, w http.ResponseWriter, status int, message string) {
	t.Helper()
	writeEnvelope(t, w, status, false, nil, message)
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, success bool, data any, message string) {
	t.Helper()
	body := map[string]any{"success": success}
	if data != nil {
		body["data"] = data
	}
	if message != "" {
		body["message"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("encoding envelope: %v", err)
	}
}

// countingMux wraps a mux and counts hits per path.
type countingMux struct {
	mux    *http.ServeMux
	total  atomic.Int64
	byPath map[string]*atomic.Int64
}

func newCountingMux() *countingMux {
	return &countingMux{mux: http.NewServeMux(), byPath: map[string]*atomic.Int64{}}
}

func (c *countingMux) handle(path string, fn http.HandlerFunc) {
	counter := &atomic.Int64{}
	c.byPath[path] = counter
	c.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		fn(w, r)
	})
}

func (c *countingMux) hits(path string) int64 {
	counter, ok := c.byPath[path]
	if !ok {
		return 0
	}
	return counter.Load()
}

func (c *countingMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.total.Add(1)
	c.mux.ServeHTTP(w, r)
}

// newTestManager builds a Manager against an httptest server with a fresh
// in-memory challenge store.
func newTestManager(t *testing.T, handler http.Handler) (*Manager, *challenge.MemoryStore) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := challenge.NewMemoryStore()
	m, err := New().
		WithBaseURL(srv.URL).
		WithChallengeStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m, store
}
