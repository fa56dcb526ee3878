package fitbit

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPath is returned when a proxied request names no API path.
	ErrMissingPath = errors.New("missing path")
	// ErrUpstreamRequestFailed matches every *UpstreamError.
	ErrUpstreamRequestFailed = errors.New("fitbit request failed")
)

// UpstreamError is a non-2xx answer from the Fitbit API.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("fitbit request failed with status %d", e.StatusCode)
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamRequestFailed
}
