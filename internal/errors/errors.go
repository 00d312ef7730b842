package errors

import (
	"errors"
	"fmt"
)

// Common error values for the gateway client tooling
var (
	// Configuration errors
	ErrMissingClientID     = errors.New("client id is not configured")
	ErrMissingClientSecret = errors.New("client secret is not configured")
	ErrInvalidTimeout      = errors.New("invalid request timeout")
	ErrInvalidSealKey      = errors.New("session seal key must be 32 hex-encoded bytes")

	// Session errors
	ErrNoSession = errors.New("no cached session")

	// General errors
	ErrInvalidArgument = errors.New("invalid argument")
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
