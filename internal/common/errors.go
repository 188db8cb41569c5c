package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Telemetry errors
	ErrDuplicateReport = errors.New("duplicate report within dedup window")
)
