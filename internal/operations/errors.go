package operations

import (
	"errors"
	"fmt"
)

// SkipError is returned by a step that has nothing to do in this run
type SkipError struct {
	Reason string
}

// Error implements the error interface
func (e *SkipError) Error() string {
	return fmt.Sprintf("step skipped: %s", e.Reason)
}

// Skip returns a SkipError with the given reason
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// IsSkip reports whether err asks the pipeline to skip the step
func IsSkip(err error) (string, bool) {
	var skipErr *SkipError
	if errors.As(err, &skipErr) {
		return skipErr.Reason, true
	}
	return "", false
}
