package client

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestProvider(t *testing.T, handler http.Handler) *TokenProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	jar, err := NewMemoryJar()
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	logger := log.New(testWriter{t}, "", 0)
	return NewTokenProvider(base, &http.Client{Jar: jar}, logger)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestEnsureToken_FetchesAndCaches(t *testing.T) {
	var fetches atomic.Int32
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TokenPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"csrf_token": "tok-abc"})
	}))

	ctx := context.Background()
	if got := provider.EnsureToken(ctx); got != "tok-abc" {
		t.Fatalf("EnsureToken = %q", got)
	}
	// Second call must be served from the cookie cache.
	if got := provider.EnsureToken(ctx); got != "tok-abc" {
		t.Fatalf("cached EnsureToken = %q", got)
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("token endpoint hit %d times, want 1", n)
	}
}

func TestEnsureToken_CookieOnlyResponse(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: TokenCookieName, Value: "from-cookie", Path: "/"})
		w.Write([]byte(`{}`))
	}))

	if got := provider.EnsureToken(context.Background()); got != "from-cookie" {
		t.Errorf("EnsureToken = %q, want token from Set-Cookie", got)
	}
}

func TestEnsureToken_EmptyOnFailure(t *testing.T) {
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if got := provider.EnsureToken(context.Background()); got != "" {
		t.Errorf("EnsureToken = %q, want empty string on failure", got)
	}
}

func TestEnsureToken_SingleFlight(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	provider := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		<-release
		json.NewEncoder(w).Encode(map[string]string{"csrf_token": "tok-sf"})
	}))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = provider.EnsureToken(context.Background())
		}()
	}
	close(release)
	wg.Wait()

	for i, got := range results {
		if got != "tok-sf" {
			t.Errorf("caller %d got %q", i, got)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("token endpoint hit %d times, want 1 (single-flight)", n)
	}
}
