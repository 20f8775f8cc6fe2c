// Package client implements the JSON transport for the tracker REST API.
//
// All requests carry the session cookie credentials held in the client's
// cookie jar. Mutating requests (POST, PUT, DELETE) additionally carry a
// CSRF token in the X-CSRF-Token header, obtained through the TokenProvider.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	internalstrings "github.com/ahenry/taskdeck/internal/strings"
)

// Options configures a Client.
type Options struct {
	// HTTPClient is the underlying HTTP client. When nil, a client using
	// Jar is constructed.
	HTTPClient *http.Client

	// Jar holds the session and CSRF cookies. When nil and HTTPClient is
	// nil, an in-memory jar is used.
	Jar http.CookieJar

	// Logger receives transport-level failures. Defaults to stderr.
	Logger *log.Logger
}

// Client calls the tracker REST API.
type Client struct {
	baseURL *url.URL
	httpc   *http.Client
	csrf    *TokenProvider
	logger  *log.Logger
}

// ParseBaseURL normalizes a server address: trailing slashes are trimmed and
// a missing scheme defaults to https.
func ParseBaseURL(addr string) (*url.URL, error) {
	baseURL := internalstrings.TrimTrailingSlash(strings.TrimSpace(addr))
	if baseURL == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	return parsed, nil
}

// New creates a client for the given address or URL.
func New(addr string, opts Options) (*Client, error) {
	parsed, err := ParseBaseURL(addr)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "client: ", log.LstdFlags)
	}

	httpc := opts.HTTPClient
	if httpc == nil {
		jar := opts.Jar
		if jar == nil {
			jar, err = NewMemoryJar()
			if err != nil {
				return nil, fmt.Errorf("create cookie jar: %w", err)
			}
		}
		httpc = &http.Client{Jar: jar}
	}

	return &Client{
		baseURL: parsed,
		httpc:   httpc,
		csrf:    NewTokenProvider(parsed, httpc, logger),
		logger:  logger,
	}, nil
}

// BaseURL returns the normalized base URL of the server.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// Tokens returns the client's CSRF token provider.
func (c *Client) Tokens() *TokenProvider {
	return c.csrf
}

// Get issues a GET request and decodes the JSON response into dest.
func (c *Client) Get(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

// Post issues a CSRF-protected POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload, dest any) error {
	return c.do(ctx, http.MethodPost, path, payload, dest)
}

// Put issues a CSRF-protected PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, payload, dest any) error {
	return c.do(ctx, http.MethodPut, path, payload, dest)
}

// Delete issues a CSRF-protected DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		// An empty token is sent as no header at all; the server rejects
		// the mutation and the caller surfaces that error normally.
		if token := c.csrf.EnsureToken(ctx); token != "" {
			req.Header.Set(TokenHeader, token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readErrorResponse(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetList fetches a list endpoint whose response is either a bare JSON array
// or an envelope of the form {"<key>": [...]}.
func GetList[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return DecodeList[T](raw, key)
}

// DecodeList decodes a list payload accepting both response shapes.
func DecodeList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", key, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s envelope: %w", key, err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q list", key)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", key, err)
	}
	return items, nil
}

func readErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		var message string
		if raw, ok := payload["error"]; ok && json.Unmarshal(raw, &message) == nil {
			apiErr.Message = message
		}
	}
	return apiErr
}
