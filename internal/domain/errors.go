package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the marketplace core. All of them are business-rule
// violations and are never retried.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyResolved   = errors.New("already resolved")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// ErrEscrowFrozen is returned when a frozen escrow is released or refunded
// outside of dispute resolution.
var ErrEscrowFrozen = fmt.Errorf("escrow is frozen by an open dispute: %w", ErrInvalidTransition)

// Validationf wraps ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports a missing entity, e.g. NotFound("order") -> "order not found".
func NotFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
