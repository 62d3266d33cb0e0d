package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSwapchainOutOfDate is returned by acquire and present when the surface
	// changed underneath the swapchain. It is the only error the frame loop
	// recovers from, by recreating the surface.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrDoubleInsert       = errors.New("resource slot already occupied")
	ErrEngineStopped      = errors.New("engine stopped")
)

// Kind classifies engine errors by what went wrong, not by where.
type Kind int

const (
	KindOpFailed Kind = iota
	KindMissingResource
	KindCompatibility
	KindEngine
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindOpFailed:
		return "OpFailed"
	case KindMissingResource:
		return "MissingResource"
	case KindCompatibility:
		return "Compatibility"
	case KindEngine:
		return "EngineError"
	case KindUser:
		return "UserError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindUser})
// works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func OpFailed(format string, args ...interface{}) error {
	return newError(KindOpFailed, format, args...)
}

func MissingResource(format string, args ...interface{}) error {
	return newError(KindMissingResource, format, args...)
}

func Compatibility(format string, args ...interface{}) error {
	return newError(KindCompatibility, format, args...)
}

func EngineError(format string, args ...interface{}) error {
	return newError(KindEngine, format, args...)
}

func UserError(format string, args ...interface{}) error {
	return newError(KindUser, format, args...)
}

// Wrap attaches a kind and a message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	e := newError(kind, format, args...)
	e.Err = err
	return e
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
