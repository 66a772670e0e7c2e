package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	// ErrValidation marks bad input: non-positive shares, unknown plans,
	// over-selling, malformed date ranges and similar.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a grant, sale or plan that does not exist for the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrDataUnavailable marks a symbol with no reachable price record.
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrComputation marks a broken invariant detected at runtime. It is a bug, not bad input.
	ErrComputation = errors.New("computation invariant violated")
)

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// DataUnavailablef returns an error wrapping ErrDataUnavailable.
func DataUnavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataUnavailable, fmt.Sprintf(format, args...))
}

// Computationf returns an error wrapping ErrComputation.
func Computationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrComputation, fmt.Sprintf(format, args...))
}
