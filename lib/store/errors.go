package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kinds
// --------------------------------------------------------------------------

// Kind classifies a store error
type Kind uint8

const (
	KindInvalidArgument  Kind = iota + 1 // 1: A name or argument was rejected before any I/O.
	KindOpenFailure                      // 2: The environment or a container could not be opened or inspected.
	KindOperationFailure                 // 3: A map operation failed in the engine or codec.
	KindShutdownFailure                  // 4: A container or environment could not be closed or deleted.
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindOpenFailure:
		return "open failure"
	case KindOperationFailure:
		return "operation failure"
	case KindShutdownFailure:
		return "shutdown failure"
	default:
		return "unknown"
	}
}

// Sentinels matching every Error of the corresponding kind with errors.Is
var (
	ErrInvalidArgument  = errors.New(KindInvalidArgument.String())
	ErrOpenFailure      = errors.New(KindOpenFailure.String())
	ErrOperationFailure = errors.New(KindOperationFailure.String())
	ErrShutdownFailure  = errors.New(KindShutdownFailure.String())
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the single error type returned by stores and factories.
type Error struct {
	Kind Kind   // The error kind
	Op   string // The operation that failed (e.g. "get", "open")
	Name string // The store name, empty for environment level failures
	Err  error  // The underlying cause, may be nil
}

// NewError creates a new Error of the given kind.
func NewError(kind Kind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "dstore: " + e.Op
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	case ErrOpenFailure:
		return e.Kind == KindOpenFailure
	case ErrOperationFailure:
		return e.Kind == KindOperationFailure
	case ErrShutdownFailure:
		return e.Kind == KindShutdownFailure
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain, 0 if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
