package portal

import (
	"errors"
	"fmt"
)

// AuthError indicates that the portal rejected the token (HTTP 401).
type AuthError struct {
	Method string
	Path   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (401) on %s %s: sign in again", e.Method, e.Path)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// HTTPError is returned for any other non-2xx response.
type HTTPError struct {
	StatusCode int
	Method     string
	Path       string

	// Message is the portal's {"message": ...} body when present,
	// otherwise the raw body.
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d on %s %s", e.StatusCode, e.Method, e.Path)
	}
	return fmt.Sprintf("portal API error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an
// HTTPError or AuthError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	if IsAuthError(err) {
		return 401
	}
	return 0
}
