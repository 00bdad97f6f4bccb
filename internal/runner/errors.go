package runner

import (
	"errors"
	"fmt"
)

// ErrPending is the pending marker. Actions return it (or a *PendingError)
// to signal a step that is intentionally not implemented yet.
var ErrPending = errors.New("pending")

// ErrUndefined is the undefined marker. Actions return it (or an
// *UndefinedError) when no implementation is bound to the step text.
var ErrUndefined = errors.New("undefined")

// PendingError is a pending marker with a message.
type PendingError struct {
	Message string
}

// Pending returns a pending marker. An empty message reads "TODO: implement me".
func Pending(message string) error {
	if message == "" {
		message = "TODO: implement me"
	}
	return &PendingError{Message: message}
}

// Error implements the error interface.
func (e *PendingError) Error() string {
	return "pending: " + e.Message
}

// Is makes errors.Is(err, ErrPending) match.
func (e *PendingError) Is(target error) bool {
	return target == ErrPending
}

// UndefinedError reports a step with no bound implementation.
type UndefinedError struct {
	StepText string
}

// Error implements the error interface.
func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined step: %q", e.StepText)
}

// Is makes errors.Is(err, ErrUndefined) match.
func (e *UndefinedError) Is(target error) bool {
	return target == ErrUndefined
}

// IsPending returns true if err is or wraps a pending marker.
func IsPending(err error) bool {
	return errors.Is(err, ErrPending)
}

// IsUndefined returns true if err is or wraps an undefined marker.
func IsUndefined(err error) bool {
	return errors.Is(err, ErrUndefined)
}

// PanicError is a recovered panic from inside an Action.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("step panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// InvariantError is a violated engine invariant.
//
// It is a programming error, not a step failure: the engine panics with it
// and never recovers it.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Message is a human-readable description.
	Message string

	// CaseID identifies the affected case.
	CaseID string
}

// InvariantCode categorizes invariant violations.
type InvariantCode string

const (
	// ErrCodeCaseRerun indicates Case.Run was called more than once.
	ErrCodeCaseRerun InvariantCode = "CASE_RERUN"

	// ErrCodeNilStep indicates a Case was built with a nil step.
	ErrCodeNilStep InvariantCode = "NIL_STEP"

	// ErrCodeNilAction indicates a Step was built without an action.
	ErrCodeNilAction InvariantCode = "NIL_ACTION"

	// ErrCodeNilScenario indicates a Step was run without a scenario context.
	ErrCodeNilScenario InvariantCode = "NIL_SCENARIO"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.CaseID != "" {
		return fmt.Sprintf("%s: %s (case=%s)", e.Code, e.Message, e.CaseID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvariantError returns true if err is an engine invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
