// ABOUTME: Error types for the admin API client
// ABOUTME: Separates unreachable-target failures from per-request API errors
package grafana

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnreachable wraps transport failures where no HTTP response arrived.
// Callers treat it as fatal for a whole run.
var ErrUnreachable = errors.New("target unreachable")

// APIError is a non-2xx response from the admin API
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsNotFound reports whether err is an APIError with status 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
