package client

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
)

func TestJar_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base, _ := url.Parse("https://tasks.example.com")

	jar, err := OpenJar(path, base)
	if err != nil {
		t.Fatalf("OpenJar: %v", err)
	}
	jar.SetCookies(base, []*http.Cookie{
		{Name: "session", Value: "sess-1", Path: "/"},
		{Name: TokenCookieName, Value: "tok-1", Path: "/"},
	})

	reopened, err := OpenJar(path, base)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	byName := map[string]string{}
	for _, c := range reopened.Cookies(base) {
		byName[c.Name] = c.Value
	}
	if byName["session"] != "sess-1" {
		t.Errorf("session cookie not persisted: %v", byName)
	}
	if byName[TokenCookieName] != "tok-1" {
		t.Errorf("csrf cookie not persisted: %v", byName)
	}
}

func TestJar_EmptyFileIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base, _ := url.Parse("https://tasks.example.com")

	jar, err := OpenJar(path, base)
	if err != nil {
		t.Fatalf("OpenJar: %v", err)
	}
	if cookies := jar.Cookies(base); len(cookies) != 0 {
		t.Errorf("expected no cookies, got %v", cookies)
	}
}
