package client

import (
	"net/http"
	"net/url"
)

// ReadTokenCookie returns the CSRF token cached in the jar for the given
// base URL, or "" when no token cookie is present.
func ReadTokenCookie(jar http.CookieJar, base *url.URL) string {
	if jar == nil {
		return ""
	}
	for _, cookie := range jar.Cookies(base) {
		if cookie.Name == TokenCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// WriteTokenCookie caches a CSRF token in the jar for the given base URL.
func WriteTokenCookie(jar http.CookieJar, base *url.URL, token string) {
	if jar == nil || token == "" {
		return
	}
	jar.SetCookies(base, []*http.Cookie{{
		Name:  TokenCookieName,
		Value: token,
		Path:  "/",
	}})
}
