package app

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidCredentials is shown for unknown usernames and wrong
	// passwords alike, so responses cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("Username or password is incorrect.")

	// ErrNotFound covers both "no such row" and "row owned by someone
	// else"; the two must stay indistinguishable to callers.
	ErrNotFound = errors.New("not found.")

	ErrUsernameTaken = errors.New("The username has already been taken.")
	ErrEmailTaken    = errors.New("The email has already been taken.")

	// ErrTooManyContacts fires when the configured per-user contact cap
	// is reached.
	ErrTooManyContacts = errors.New("The user already has the maximum number of contacts.")

	ErrTokenNotProvided = errors.New("Token not provided")
	ErrTokenIssuance    = errors.New("Could not create token.")
)

// ValidationError collects per-field messages for a 400 response.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// fieldErrors accumulates validation messages before turning into a
// *ValidationError (or nil when everything passed).
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
