package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session gateway
var (
	// Sign-in errors
	ErrCredentialRejected = errors.New("credentials rejected")
	ErrWrongPassword      = errors.New("wrong password")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrMalformedEmail     = errors.New("malformed email")

	// Credential-exchange errors
	ErrInvalidResponse     = errors.New("invalid backend response")
	ErrUpstreamAuthFailure = errors.New("upstream authentication failure")
	ErrEmptyAssertion      = errors.New("empty identity assertion")

	// Refresh errors
	ErrRefreshFailure    = errors.New("token refresh failure")
	ErrNoLiveAssertion   = errors.New("no live identity-provider session")
	ErrAssertionNoExpiry = errors.New("assertion missing exp claim")

	// Guard errors
	ErrGuardEvaluation = errors.New("guard evaluation failure")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
