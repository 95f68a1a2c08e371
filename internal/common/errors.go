// Package common defines shared constants and sentinel errors used across
// the layers of snowchat. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrOwnershipMismatch is returned when a write names an owner other than
	// the authenticated caller, mirroring the row-level-security rejection the
	// database would produce.
	ErrOwnershipMismatch = errors.New("row ownership mismatch")

	// ServiceNow client errors.
	ErrAuthentication = errors.New("authentication failed")
	ErrNetwork        = errors.New("network error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Assistant errors.
	ErrAssistantDisabled = errors.New("assistant is disabled")
)
