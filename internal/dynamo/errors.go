package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for scenario and configuration validation.
var (
	// ErrMalformedScenario is matched by every scenario validation failure.
	ErrMalformedScenario = errors.New("dynamo: malformed scenario")

	// ErrLengthMismatch indicates the per-body arrays differ in length.
	ErrLengthMismatch = errors.New("dynamo: body arrays differ in length")

	// ErrNonPositiveMass indicates a mass that is zero, negative or NaN.
	ErrNonPositiveMass = errors.New("dynamo: mass must be strictly positive")

	// ErrNonFinite indicates a NaN or infinite position, velocity or mass.
	ErrNonFinite = errors.New("dynamo: non-finite value")

	// ErrInvalidConfig indicates run parameters outside their valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")
)

// BodyError wraps a validation failure with the offending body.
type BodyError struct {
	Index   int
	Field   string
	Wrapped error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("body %d: %s: %v", e.Index, e.Field, e.Wrapped)
}

func (e *BodyError) Unwrap() []error {
	return []error{e.Wrapped, ErrMalformedScenario}
}
