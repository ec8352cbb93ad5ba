package orders

import "errors"

var (
	// ErrValidation marks a request with missing or malformed fields.
	ErrValidation = errors.New("invalid order request")
	// ErrNotFound is returned when the order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when the policy forbids the status change.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrConflict is returned when the order changed between read and write.
	ErrConflict = errors.New("order was modified concurrently")
	// ErrTotalMismatch is returned when the submitted total differs from the
	// total computed from menu prices.
	ErrTotalMismatch = errors.New("order total does not match item prices")
)
