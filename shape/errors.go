package shape

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a network that cannot be constructed.
	ErrInvalidConfig = errors.New("invalid network configuration")
	// ErrShapeMismatch marks tensors whose dimensions disagree where they
	// must agree (concatenation, input channels, crop source).
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDegenerateInput marks an input too small to survive the
	// contraction depth.
	ErrDegenerateInput = errors.New("degenerate input")
)

// Error carries the failing stage alongside one of the sentinel kinds above.
// Match it with errors.Is against the kind.
type Error struct {
	Kind  error
	Stage string
	Msg   string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Stage != "" {
		msg = fmt.Sprintf("%s at %s", msg, e.Stage)
	}
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Configf returns an ErrInvalidConfig error.
func Configf(format string, args ...any) error {
	return &Error{Kind: ErrInvalidConfig, Msg: fmt.Sprintf(format, args...)}
}

// Mismatchf returns an ErrShapeMismatch error for the given stage.
func Mismatchf(stage, format string, args ...any) error {
	return &Error{Kind: ErrShapeMismatch, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// Degeneratef returns an ErrDegenerateInput error for the given stage.
func Degeneratef(stage, format string, args ...any) error {
	return &Error{Kind: ErrDegenerateInput, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}
