package fluid

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrInvalidConfig indicates a configuration that would make the physics meaningless.
	ErrInvalidConfig = errors.New("fluid: invalid configuration")

	// ErrInvalidState indicates a particle with a NaN or Inf component.
	ErrInvalidState = errors.New("fluid: invalid particle state (NaN or Inf detected)")

	// ErrNotPaused indicates a single-step request while the engine is running.
	ErrNotPaused = errors.New("fluid: single step requires the engine to be paused")

	// ErrUnknownMode indicates a solver mode name that is not registered.
	ErrUnknownMode = errors.New("fluid: unknown solver mode")

	// ErrClosed indicates use of an engine after Close.
	ErrClosed = errors.New("fluid: engine closed")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fluid: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// InvalidConfig is shorthand for building a *ConfigError.
func InvalidConfig(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StepError wraps an error with the tick it was detected on.
type StepError struct {
	Tick    uint64
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f): %v", e.Tick, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
