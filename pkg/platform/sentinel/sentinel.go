// Package sentinel holds the errors stores return. Services translate them
// into domain errors once, at the service boundary.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrExpired      = errors.New("expired")
	// ErrAlreadyUsed covers unique violations: a taken schema, domain or
	// email, and a refresh token presented twice.
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
