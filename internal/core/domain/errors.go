package domain

import "errors"

var (
	// ErrNotFound is returned by storage backends for a missing key.
	ErrNotFound = errors.New("not found")

	// ErrLinkNotFound means no route link exists under the requested id.
	ErrLinkNotFound = errors.New("route link not found")

	// ErrLinkExpired means the route link exists but is past its expiry.
	ErrLinkExpired = errors.New("route link expired")

	// ErrNoRoute is returned when the routing provider finds no route.
	ErrNoRoute = errors.New("no route found")
)

// ValidationError is a user-facing input problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ProviderError wraps a failure from an external geocoding, routing or perimeter provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
