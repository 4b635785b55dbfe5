package service

import "errors"

// Error taxonomy exposed to handlers. Concrete errors wrap one of these with
// %w and a human-readable reason.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrAuthentication  = errors.New("authentication required")
	ErrPaymentMismatch = errors.New("payment mismatch")
	ErrSignature       = errors.New("invalid signature")
)
