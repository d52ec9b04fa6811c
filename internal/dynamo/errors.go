package dynamo

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a field holding NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrGridSize indicates a grid too small to hold a source patch or a frame.
	ErrGridSize = errors.New("dynamo: grid size out of range")

	// ErrDimensionMismatch indicates a field whose length does not match its grid.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between field and grid")
)

// StepError wraps an error with simulation context.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return e.Wrapped.Error()
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
