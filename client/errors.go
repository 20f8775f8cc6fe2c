package client

import (
	"errors"
	"fmt"
	"net/http"
)

// UnknownErrorMessage is the display message used when an error carries no
// text of its own.
const UnknownErrorMessage = "Unknown error"

// APIError is a non-2xx response from the server. Message holds the
// server-provided error verbatim when the response body carried one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Message returns the display message for a failed operation: the server's
// message verbatim when it sent one, fallback when the server gave none, the
// error text for transport failures, and UnknownErrorMessage as a last
// resort.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
