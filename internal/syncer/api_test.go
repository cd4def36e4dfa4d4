package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIClientFetchUpdate(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/sessions/s1":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "s1", "status": "active"})
		case r.Method == http.MethodPatch && r.URL.Path == "/sessions/s1":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			body["id"] = "s1"
			_ = json.NewEncoder(w).Encode(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "service-token")

	fields, err := client.Fetch(context.Background(), "sessions", "s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fields["status"] != "active" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
	if gotAuth != "Bearer service-token" {
		t.Fatalf("missing auth header: %q", gotAuth)
	}

	updated, err := client.Update(context.Background(), "sessions", "s1", map[string]any{"status": "completed"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated["status"] != "completed" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := client.Fetch(context.Background(), "sessions", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAPIClientServerErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewAPIClient(srv.URL, "")
	_, err := client.Fetch(context.Background(), "sessions", "s1")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestAPIClientUnreachable(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:1", "")
	_, err := client.Fetch(context.Background(), "sessions", "s1")
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestAPIClientNotConfigured(t *testing.T) {
	client := NewAPIClient("", "")
	if _, err := client.Fetch(context.Background(), "sessions", "s1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTokenStrategyUsersOnly(t *testing.T) {
	strat := NewTokenStrategy(func(id string) map[string]any {
		if id != "u1" {
			return nil
		}
		return map[string]any{"id": "u1", "role": "parent"}
	})

	fields, err := strat.Fetch(context.Background(), "users", "u1")
	if err != nil || fields["role"] != "parent" {
		t.Fatalf("unexpected: %v %v", fields, err)
	}
	if _, err := strat.Fetch(context.Background(), "sessions", "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-user collection")
	}
	if _, err := strat.Update(context.Background(), "users", "u1", nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly")
	}
}
