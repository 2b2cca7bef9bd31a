package builder

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrAttemptsExhausted means every eligible build attempt failed.
	ErrAttemptsExhausted = errors.New("all build attempts exhausted")

	// ErrNoAttempts means the plan contained no attempts to run.
	ErrNoAttempts = errors.New("build plan contains no attempts")
)

// BuildError wraps a build failure with the variant being built.
type BuildError struct {
	Variant  string
	Attempts int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %d attempt(s) failed: %s", e.Variant, e.Attempts, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
