// Package errors defines the failure taxonomy of a tracking run.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the class of a pipeline failure
type ErrorType string

const (
	ErrorTypeCredential ErrorType = "credential"
	ErrorTypeQuery      ErrorType = "query"
	ErrorTypeDataShape  ErrorType = "data_shape"
	ErrorTypeTimestamp  ErrorType = "timestamp"
	ErrorTypeReport     ErrorType = "report"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeExecution  ErrorType = "execution"
)

// PipelineError represents a pipeline failure.
// Every PipelineError aborts the run; there is no recovery tier.
type PipelineError struct {
	Type    ErrorType              `json:"type"`
	Step    string                 `json:"step,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e == nil {
		return "unknown pipeline error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewCredentialError reports a credential file that could not be read or is empty
func NewCredentialError(path string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeCredential,
		Message: fmt.Sprintf("cannot load API key from %s", path),
		Cause:   cause,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// NewQueryError reports a failed search against the movements service
func NewQueryError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeQuery,
		Message: message,
		Cause:   cause,
	}
}

// NewDataShapeError reports a row or table missing an expected column
func NewDataShapeError(row int, column string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeDataShape,
		Message: fmt.Sprintf("row %d: missing column %q", row, column),
		Context: map[string]interface{}{
			"row":    row,
			"column": column,
		},
	}
}

// NewDataValueError reports a value that cannot be converted to its column's type
func NewDataValueError(row int, column string, value any, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeDataShape,
		Message: fmt.Sprintf("row %d: invalid %q value %v", row, column, value),
		Cause:   cause,
		Context: map[string]interface{}{
			"row":    row,
			"column": column,
		},
	}
}

// NewTimestampError reports a timestamp that is present but not parseable
func NewTimestampError(column, value string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeTimestamp,
		Message: fmt.Sprintf("malformed %s %q", column, value),
		Cause:   cause,
		Context: map[string]interface{}{
			"column": column,
			"value":  value,
		},
	}
}

// NewReportError reports a failure while writing the workbook
func NewReportError(message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeReport,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationError reports invalid configuration or step input
func NewValidationError(step, message string) *PipelineError {
	return &PipelineError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// GetErrorType returns the type of the first PipelineError in err's chain.
// Errors outside the taxonomy are reported as execution errors.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *PipelineError
	if stderrors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// WrapError attaches the step name to err
func WrapError(err error, step string) *PipelineError {
	if err == nil {
		return nil
	}

	var opErr *PipelineError
	if stderrors.As(err, &opErr) {
		if opErr.Step == "" {
			opErr.Step = step
		}
		return opErr
	}

	return &PipelineError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "step execution failed",
		Cause:   err,
	}
}

// IsType reports whether err's chain contains a PipelineError of type t
func IsType(err error, t ErrorType) bool {
	var opErr *PipelineError
	return stderrors.As(err, &opErr) && opErr.Type == t
}

var (
	// ErrEmptyCredential is the cause of a credential error for a blank key file
	ErrEmptyCredential = stderrors.New("credential file is empty")
	// ErrUnauthorized is returned when the movements service rejects the API key
	ErrUnauthorized = stderrors.New("movements service rejected the API key")
)
