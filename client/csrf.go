package client

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"

	"golang.org/x/sync/singleflight"
)

const (
	// TokenCookieName is the cookie carrying the cached CSRF token.
	TokenCookieName = "csrf_token"

	// TokenHeader is the request header carrying the CSRF token on mutations.
	TokenHeader = "X-CSRF-Token"

	// TokenPath is the token-issuing endpoint.
	TokenPath = "/api/csrf-token"
)

// TokenProvider guarantees a CSRF token is available before a mutating call.
// The token cookie is the cache: once the server has issued a token it is
// reused for the remainder of the session. Concurrent callers share a single
// in-flight fetch.
type TokenProvider struct {
	base   *url.URL
	httpc  *http.Client
	logger *log.Logger
	group  singleflight.Group
}

// NewTokenProvider creates a provider fetching tokens from base.
func NewTokenProvider(base *url.URL, httpc *http.Client, logger *log.Logger) *TokenProvider {
	return &TokenProvider{base: base, httpc: httpc, logger: logger}
}

// EnsureToken returns a CSRF token, fetching one when the cookie cache is
// empty. It never fails: on fetch failure it returns "" so the mutation
// proceeds without a token and the server's rejection is surfaced normally.
func (p *TokenProvider) EnsureToken(ctx context.Context) string {
	if token := ReadTokenCookie(p.httpc.Jar, p.base); token != "" {
		return token
	}

	value, _, _ := p.group.Do("token", func() (any, error) {
		return p.fetchToken(ctx), nil
	})
	token, _ := value.(string)
	return token
}

func (p *TokenProvider) fetchToken(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base.String()+TokenPath, nil)
	if err != nil {
		p.logger.Printf("csrf token request: %v", err)
		return ""
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		p.logger.Printf("fetch csrf token: %v", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.logger.Printf("fetch csrf token: %s", resp.Status)
		return ""
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		for _, key := range []string{"csrf_token", "csrfToken", "token"} {
			if token := payload[key]; token != "" {
				WriteTokenCookie(p.httpc.Jar, p.base, token)
				return token
			}
		}
	}

	// Some servers only set the cookie; the Set-Cookie header has already
	// been applied to the jar by the transport at this point.
	return ReadTokenCookie(p.httpc.Jar, p.base)
}
