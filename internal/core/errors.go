package core

import (
	"errors"
	"fmt"
)

// ErrInvalidAmount reports an unparseable or out-of-range money string.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrorKind classifies engine errors so callers can map them to a transport
// status without string matching.
type ErrorKind int

const (
	// KindValidation is a malformed request, rejected before any mutation.
	KindValidation ErrorKind = iota + 1
	// KindConflict is a duplicate or self-referential operation.
	KindConflict
	// KindNotFound is a missing budget, fund, master, or transaction.
	KindNotFound
	// KindPrecondition is a state that forbids the requested transition.
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Error is a kinded engine error. The message carries the offending id or
// amount so the caller can present something actionable; the engine itself
// never formats presentation text.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// KindOf unwraps err and returns its ErrorKind, or 0 for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
