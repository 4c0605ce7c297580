package sessionkit

import (
	"context"
	"net/http"
	"testing"
)

func TestLogoutAlwaysSucceedsLocally(t *testing.T) {
	mux := newCountingMux()
	mux.handle(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(t, w, map[string]any{"user": completeUser()})
	})
	mux.handle(pathMe, func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(t, w, completeUser())
	})
	mux.handle(pathLogout, func(w http.ResponseWriter, r *http.Request) {
		// The server is on fire; leaving must still work.
		w.WriteHeader(http.StatusInternalServerError)
	})

	m, store := newTestManager(t, mux)

	if _, err := m.Login(context.Background(), "alice@example.com", "pw", false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("expected authenticated before logout, got %s", m.State())
	}

	m.Logout(context.Background())

	snap := m.Snapshot()
	if snap.State != StateAnonymous {
		t.Fatalf("expected anonymous after logout, got %s", snap.State)
	}
	if snap.User != nil || snap.Challenge != nil {
		t.Fatal("expected all session state cleared")
	}
	if _, ok, _ := store.Load(context.Background()); ok {
		t.Fatal("expected mirror cleared after logout")
	}
}

func TestLogoutClearsPendingChallenge(t *testing.T) {
	mux := newCountingMux()
	mux.handle(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(t, w, map[string]any{"requires2FA": true, "tempToken": "abc"})
	})
	mux.handle(pathLogout, func(w http.ResponseWriter, r *http.Request) {
		writeSuccess(t, w, nil)
	})

	m, store := newTestManager(t, mux)

	if _, err := m.Login(context.Background(), "alice@example.com", "pw", false); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	m.Logout(context.Background())

	if m.State() != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", m.State())
	}
	if _, ok, _ := store.Load(context.Background()); ok {
		t.Fatal("expected mirror cleared")
	}
}
