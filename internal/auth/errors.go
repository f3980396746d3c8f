package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when no user matches the login email.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingToken is returned when a request carries no credential.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidOrExpiredToken is returned for tokens with a bad signature,
	// a bad shape, or a passed expiry.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the identity lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrUpstream wraps failures of the user store or token signing.
	ErrUpstream = errors.New("upstream failure")
)

// StatusCode maps an authenticator error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidOrExpiredToken), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Reason maps an authenticator error to a short machine-readable reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "user_not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return "invalid_or_expired_token"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "server_error"
	}
}
