package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoSendsJSONAndDecodesResponse(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, AuthToken: "tok-1"})

	var out map[string]string
	err := c.Do(context.Background(), http.MethodPost, "/api/cart/items",
		map[string]interface{}{"product_id": "p-1"}, &out)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/cart/items" {
		t.Errorf("wrong request: %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("missing bearer token, got %q", gotAuth)
	}
	if gotBody["product_id"] != "p-1" {
		t.Errorf("body not forwarded: %v", gotBody)
	}
	if out["status"] != "ok" {
		t.Errorf("response not decoded: %v", out)
	}
}

func TestDoForwardsIdempotencyKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	ctx := WithIdempotencyKey(context.Background(), "action-42")
	if err := c.Do(ctx, http.MethodPut, "/api/favorites/p-1", nil, nil); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotKey != "action-42" {
		t.Errorf("expected idempotency key forwarded, got %q", gotKey)
	}
}

func TestNonSuccessYieldsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"code": "OUT_OF_STOCK", "message": "item unavailable"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.Do(context.Background(), http.MethodPost, "/api/cart/items", nil, nil)

	se, ok := AsStatus(err)
	if !ok {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusBadRequest || se.Code != "OUT_OF_STOCK" || se.Message != "item unavailable" {
		t.Errorf("error body not decoded: %+v", se)
	}
}

func TestNonJSONErrorBodyStillYieldsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.Do(context.Background(), http.MethodGet, "/api/cart", nil, nil)

	se, ok := AsStatus(err)
	if !ok {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", se.Status)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{Status: 503}, true},
		{"client rejection", &StatusError{Status: 400}, false},
		{"conflict", &StatusError{Status: 409}, false},
		{"network failure", errors.New("dial tcp: connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestUnreachableServerIsTransient(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 500 * time.Millisecond})
	err := c.Do(context.Background(), http.MethodGet, "/api/cart", nil, nil)
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if _, ok := AsStatus(err); ok {
		t.Error("a connection failure must not decode as a StatusError")
	}
	if !IsTransient(err) {
		t.Error("a connection failure must classify as transient")
	}
}
