package operations

import (
	stderrors "errors"
	"fmt"
)

// OperationError records the step at which a run stopped. The underlying
// error stays reachable through errors.As and errors.Is.
type OperationError struct {
	Step  string
	Cause error
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewOperationError wraps cause as the failure of step
func NewOperationError(step string, cause error) *OperationError {
	return &OperationError{Step: step, Cause: cause}
}

// FailedStep returns the step recorded in err, or "" if err did not come from a run
func FailedStep(err error) string {
	var opErr *OperationError
	if stderrors.As(err, &opErr) {
		return opErr.Step
	}
	return ""
}
