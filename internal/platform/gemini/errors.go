package gemini

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrClientDisabled is returned at call time when no API key was configured at startup.
	ErrClientDisabled = errors.New("generation client is not initialized; configure GEMINI_API_KEY")
	// ErrInvalidCredential means the service rejected the configured key.
	ErrInvalidCredential = errors.New("generation API key rejected")
	// ErrMalformedResponse covers unparseable JSON and schema violations in structured output.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrEmptyResponse means the service answered without any candidate text.
	ErrEmptyResponse = errors.New("empty model response")
)

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, truncate(e.Body, 512))
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// classify maps a non-2xx response to ErrInvalidCredential when the body says the key is bad.
func classify(status int, body string) error {
	herr := &HTTPError{StatusCode: status, Body: body}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrInvalidCredential, herr)
	case status == http.StatusBadRequest && (strings.Contains(body, "API key not valid") || strings.Contains(body, "API_KEY_INVALID")):
		return fmt.Errorf("%w: %w", ErrInvalidCredential, herr)
	}
	return herr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
