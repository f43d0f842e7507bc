package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError represents a non-2xx response from the upstream registry.
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// IsNotFound reports whether err is an upstream 404. Callers treat a missing
// entity as an absent result rather than a transport failure.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
