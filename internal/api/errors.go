package api

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx response from the remote API.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// IsValidation reports whether the error is a permanent payload rejection
// (HTTP 400 or 422). The drain loop drops these immediately instead of
// burning retries on a request that can never succeed.
func IsValidation(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.Status == http.StatusBadRequest || he.Status == http.StatusUnprocessableEntity
}

// IsNotFound reports whether the error is an HTTP 404.
func IsNotFound(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) {
		return false
	}
	return he.Status == http.StatusNotFound
}
