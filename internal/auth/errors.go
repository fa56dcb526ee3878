package auth

import "errors"

var (
	// ErrAuthStateMismatch is returned when the callback state differs from the stored one.
	ErrAuthStateMismatch = errors.New("state mismatch")
	// ErrMissingVerifier is returned when a callback arrives without a pending attempt.
	ErrMissingVerifier = errors.New("missing code verifier")
	// ErrMissingFields is returned when an exchange request lacks code, verifier or redirect URI.
	ErrMissingFields = errors.New("missing fields")
	// ErrNotAuthorized is returned when the session holds no usable access token.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNoRefreshToken is returned when a refresh is requested without a stored refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshInProgress is returned when another refresh holds the session's lock.
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
