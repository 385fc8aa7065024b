package cms

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors reported by the Client. Wrapped errors keep their stack
// traces; match them with errors.Is.
var (
	ErrNotFound     = errors.New("cms: story not found")
	ErrUnauthorized = errors.New("cms: access token rejected")
	ErrValidation   = errors.New("cms: invalid request")
)

// NetworkError reports a transport failure: DNS, connection, TLS, timeout or
// a response body that could not be read.
type NetworkError struct {
	Op   string
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("cms: %s %s: network error: %v", e.Op, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is returned for non-2xx responses that are neither 401 nor 404.
type APIError struct {
	Op     string
	Path   string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms: %s %s: unexpected status %d", e.Op, e.Path, e.Status)
}

// ValidationError describes a request the client refused to send.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "cms: " + e.Msg
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
