package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/classkit/internal/compiler"
)

// RuntimeError represents an error detected while building classes,
// constructing instances or calling methods.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Class names the class involved, if any.
	Class string

	// RunID identifies the affected run, if one was allocated.
	RunID string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownClass indicates no class with the requested name.
	ErrCodeUnknownClass RuntimeErrorCode = "UNKNOWN_CLASS"

	// ErrCodeConstructionFailed indicates instantiation failed.
	ErrCodeConstructionFailed RuntimeErrorCode = "CONSTRUCTION_FAILED"

	// ErrCodeUnknownMethod indicates the instance or class has no such member.
	ErrCodeUnknownMethod RuntimeErrorCode = "UNKNOWN_METHOD"

	// ErrCodeInvalidArgument indicates an argument or result cannot be
	// represented as an IR value.
	ErrCodeInvalidArgument RuntimeErrorCode = "INVALID_ARGUMENT"

	// ErrCodeMethodFailed indicates a method body returned an error.
	ErrCodeMethodFailed RuntimeErrorCode = "METHOD_FAILED"

	// ErrCodeInvalidSpec indicates a class spec failed validation or
	// could not be composed.
	ErrCodeInvalidSpec RuntimeErrorCode = "INVALID_SPEC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Class != "" && e.RunID != "" {
		fmt.Fprintf(&b, " (class=%s, run=%s)", e.Class, e.RunID)
	} else if e.Class != "" {
		fmt.Fprintf(&b, " (class=%s)", e.Class)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the RuntimeError in err's chain, or "".
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsUnknownClass reports whether err is an UNKNOWN_CLASS runtime error.
func IsUnknownClass(err error) bool {
	return CodeOf(err) == ErrCodeUnknownClass
}

// IsUnknownMethod reports whether err is an UNKNOWN_METHOD runtime error.
func IsUnknownMethod(err error) bool {
	return CodeOf(err) == ErrCodeUnknownMethod
}

// IsConstructionFailed reports whether err is a CONSTRUCTION_FAILED
// runtime error.
func IsConstructionFailed(err error) bool {
	return CodeOf(err) == ErrCodeConstructionFailed
}

// NewSpecError creates a RuntimeError for a class whose spec failed
// validation.
func NewSpecError(class string, errs []compiler.ValidationError) *RuntimeError {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return &RuntimeError{
		Code:    ErrCodeInvalidSpec,
		Message: strings.Join(msgs, "; "),
		Class:   class,
	}
}
