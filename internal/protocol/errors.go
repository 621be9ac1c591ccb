package protocol

import (
	"errors"
	"fmt"
)

// Code is the integer result code reported across the handle API.
type Code int

const (
	CodeNone             Code = 0
	CodeInvalidParameter Code = -22
	CodeOutOfMemory      Code = -12
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeInvalidParameter:
		return "invalid parameter"
	case CodeOutOfMemory:
		return "out of memory"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error is a failed operation with its result code.
type Error struct {
	Code   Code
	Op     string
	Reason string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Reason == "":
		return "protocol: " + e.Code.String()
	case e.Op == "":
		return fmt.Sprintf("protocol: %s: %s", e.Code, e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("protocol: %s: %s", e.Op, e.Code)
	default:
		return fmt.Sprintf("protocol: %s: %s: %s", e.Op, e.Code, e.Reason)
	}
}

// Is matches any *Error with the same code, so errors.Is(err, ErrInvalidParameter)
// holds for every invalid-parameter failure regardless of Op and Reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidParameter = &Error{Code: CodeInvalidParameter}
	ErrOutOfMemory      = &Error{Code: CodeOutOfMemory}
)

// InvalidParameter returns an invalid-parameter failure for op.
func InvalidParameter(op, reason string) error {
	return &Error{Code: CodeInvalidParameter, Op: op, Reason: reason}
}

// OutOfMemory returns an out-of-memory failure for op.
func OutOfMemory(op, reason string) error {
	return &Error{Code: CodeOutOfMemory, Op: op, Reason: reason}
}

// CodeOf maps err to its result code. Errors that carry no code report
// CodeInvalidParameter.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInvalidParameter
}
