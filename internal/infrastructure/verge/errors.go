package verge

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by an APIError carrying HTTP 401.
	ErrUnauthorized = errors.New("backend rejected credentials")

	// ErrNotFound is matched by an APIError carrying HTTP 404 and by lookups
	// that found no matching record in a client-filtered list.
	ErrNotFound = errors.New("not found")

	// ErrNoCredentials is returned when neither a credential pair nor a token is configured.
	ErrNoCredentials = errors.New("no backend credentials configured")
)

// APIError is a non-success HTTP response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// DecodeError is a backend response body that did not match the expected schema.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
