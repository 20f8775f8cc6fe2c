package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// NewMemoryJar returns a plain in-memory cookie jar.
func NewMemoryJar() (http.CookieJar, error) {
	return cookiejar.New(nil)
}

// Jar is a cookie jar persisted to a JSON file so the session cookie and the
// cached CSRF token survive CLI invocations. Only cookies scoped to the
// configured server URL are persisted.
type Jar struct {
	mu    sync.Mutex
	inner *cookiejar.Jar
	path  string
	base  *url.URL
}

type persistedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// OpenJar loads (or initializes) the persistent jar at path for the given
// server URL.
func OpenJar(path string, base *url.URL) (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	jar := &Jar{inner: inner, path: path, base: base}
	if err := jar.load(); err != nil {
		return nil, err
	}
	return jar, nil
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// SetCookies implements http.CookieJar and persists the updated state.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
	// Persistence is best-effort: a failed save only costs the next
	// invocation a re-login or token re-fetch.
	_ = j.save()
}

func (j *Jar) load() error {
	return withFileLock(j.path, func() error {
		data, err := os.ReadFile(j.path)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read cookie file: %w", err)
		}
		var stored []persistedCookie
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("parse cookie file: %w", err)
		}

		now := time.Now()
		restored := make([]*http.Cookie, 0, len(stored))
		for _, c := range stored {
			if !c.Expires.IsZero() && c.Expires.Before(now) {
				continue
			}
			restored = append(restored, &http.Cookie{
				Name:    c.Name,
				Value:   c.Value,
				Path:    "/",
				Expires: c.Expires,
			})
		}
		j.inner.SetCookies(j.base, restored)
		return nil
	})
}

func (j *Jar) save() error {
	cookies := j.inner.Cookies(j.base)
	stored := make([]persistedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, persistedCookie{Name: c.Name, Value: c.Value, Expires: c.Expires})
	}

	return withFileLock(j.path, func() error {
		data, err := json.MarshalIndent(stored, "", "  ")
		if err != nil {
			return fmt.Errorf("encode cookies: %w", err)
		}

		tmpPath := j.path + ".tmp"
		if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
			return fmt.Errorf("write cookie file: %w", err)
		}
		if err := os.Rename(tmpPath, j.path); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("rename cookie file: %w", err)
		}
		return nil
	})
}

// withFileLock executes fn while holding an exclusive lock on the file at
// path. Creates the file and its parent directory if missing.
func withFileLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}
