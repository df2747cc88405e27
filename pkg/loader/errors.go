package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingURL is returned when a load is requested without a URL.
	ErrMissingURL = errors.New("loader: missing script url")

	// ErrMissingCallerID is returned when a load is requested without a
	// caller identifier.
	ErrMissingCallerID = errors.New("loader: missing caller id")
)

// ResourceError wraps a synchronous failure to create or insert a resource
// object for a URL.
type ResourceError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("loader: resource creation failed for %q: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}
