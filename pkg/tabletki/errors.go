package tabletki

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks against the three failure kinds.
var (
	ErrNetwork       = errors.New("tabletki: network failure")
	ErrAPI           = errors.New("tabletki: api failure")
	ErrSerialization = errors.New("tabletki: serialization failure")
)

// NetworkError reports a transport failure (DNS, connect, TLS, timeout) that
// outlived the retry budget.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// APIError reports a completed exchange with a status outside 200-299.
// Payload holds the decoded JSON body, or the body text capped at 500 bytes.
type APIError struct {
	StatusCode int
	URL        string
	Payload    any
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("status=%d", e.StatusCode)}
	if e.URL != "" {
		parts = append(parts, "url="+e.URL)
	}
	return fmt.Sprintf("HTTP %d (%s)", e.StatusCode, strings.Join(parts, ", "))
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// SerializationError reports a 2xx body that is not JSON or does not fit the
// expected model.
type SerializationError struct {
	URL string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("invalid response from %s: %v", e.URL, e.Err)
}

func (e *SerializationError) Unwrap() error        { return e.Err }
func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }
