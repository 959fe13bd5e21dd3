package registry

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a package or version does not exist upstream.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with the identity that was requested.
type NotFoundError struct {
	ID      string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("package %s version %s not found", e.ID, e.Version)
	}
	return fmt.Sprintf("package %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// HTTPError represents a non-success response from the registry.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}
