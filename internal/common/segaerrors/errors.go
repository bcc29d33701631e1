// Package segaerrors contains generic errors returned by the estimator and
// projection packages. Callers are expected to recover the concrete type with
// errors.As; all errors in this package are returned before any estimator
// state has been mutated.
package segaerrors

import (
	"fmt"
)

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the argument referred to, e.g., "theta"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for argument %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for argument %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrShapeMismatch is returned whenever the dimensions of an estimate, sketch,
// observation, or preconditioner are mutually inconsistent. Got and Want
// identify the offending dimensions. Message is optional and is omitted from
// the error message if not provided.
type ErrShapeMismatch struct {
	Name    string // Name of the argument with the offending shape, e.g., "s"
	Got     []int  // The shape that was provided
	Want    []int  // The shape that would have been consistent
	Message string // An optional message to include in the error message
}

func (err *ErrShapeMismatch) Error() (s string) {
	s = fmt.Sprintf("argument %q has shape %v but shape %v is required", err.Name, err.Got, err.Want)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrUnsupported is returned for operation/argument combinations that are
// valid in principle but that this implementation deliberately does not
// support. It is returned instead of silently computing an approximation.
type ErrUnsupported struct {
	Operation string // The attempted operation, e.g., "ProjectBatch"
	Message   string // Explanation of what is unsupported
}

func (err *ErrUnsupported) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("operation %q is unsupported", err.Operation)
	} else {
		return fmt.Sprintf("operation %q is unsupported; %s", err.Operation, err.Message)
	}
}
