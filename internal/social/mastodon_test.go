package social

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/i474232898/weather-forecast-bot/internal/common"
)

func TestMastodonPost(t *testing.T) {
	var gotAuth, gotStatus, gotVisibility, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/statuses" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		gotStatus = r.PostForm.Get("status")
		gotVisibility = r.PostForm.Get("visibility")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","url":"https://example.social/@bot/1"}`))
	}))
	defer srv.Close()

	p := NewMastodonPoster(srv.URL+"/", "", common.HTTPClientConfig{Client: srv.Client()})
	ok, err := p.Post(context.Background(), Status{
		Account: Account{ID: "alice", Token: "tok"},
		Text:    "Tokyo forecast\n\n7時\n☀ 20℃ 33％",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected success")
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotStatus != "Tokyo forecast\n\n7時\n☀ 20℃ 33％" {
		t.Fatalf("unexpected status %q", gotStatus)
	}
	if gotVisibility != "unlisted" {
		t.Fatalf("unexpected visibility %q", gotVisibility)
	}
	if gotKey == "" {
		t.Fatalf("expected idempotency key")
	}
}

func TestMastodonPostRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	p := NewMastodonPoster(srv.URL, "public", common.HTTPClientConfig{Client: srv.Client()})
	ok, err := p.Post(context.Background(), Status{Account: Account{ID: "alice", Token: "tok"}, Text: "x"})
	if err == nil || ok {
		t.Fatalf("expected failure, got ok=%v err=%v", ok, err)
	}
}

func TestMastodonPostRequiresToken(t *testing.T) {
	p := NewMastodonPoster("http://unused", "", common.HTTPClientConfig{Client: http.DefaultClient})
	if ok, err := p.Post(context.Background(), Status{Account: Account{ID: "alice"}}); err == nil || ok {
		t.Fatalf("expected error without token")
	}
}

func TestMastodonBreakerIsPerAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	p := NewMastodonPoster(srv.URL, "", common.HTTPClientConfig{Client: srv.Client()})
	broken := Status{Account: Account{ID: "bob", Token: "broken"}, Text: "x"}

	// The default breaker opens after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		if _, err := p.Post(context.Background(), broken); !errors.Is(err, common.ErrServerError) {
			t.Fatalf("attempt %d: unexpected error %v", i, err)
		}
	}
	if _, err := p.Post(context.Background(), broken); !errors.Is(err, common.ErrCircuitOpen) {
		t.Fatalf("expected bob's circuit to be open, got %v", err)
	}

	ok, err := p.Post(context.Background(), Status{Account: Account{ID: "alice", Token: "tok"}, Text: "x"})
	if err != nil || !ok {
		t.Fatalf("alice must still post, got ok=%v err=%v", ok, err)
	}
}

func TestMastodonClientErrorsKeepCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewMastodonPoster(srv.URL, "", common.HTTPClientConfig{Client: srv.Client()})
	st := Status{Account: Account{ID: "alice", Token: "revoked"}, Text: "x"}
	for i := 0; i < 10; i++ {
		if _, err := p.Post(context.Background(), st); !errors.Is(err, common.ErrUnexpected) {
			t.Fatalf("attempt %d: expected unexpected-status error, got %v", i, err)
		}
	}
}
