package capture

import (
	"errors"
	"fmt"
)

var (
	ErrInputRejected         = errors.New("input rejected")
	ErrCaptureUnavailable    = errors.New("capture unavailable")
	ErrElementNotFound       = errors.New("element not found")
	ErrCaptureFailed         = errors.New("capture failed")
	ErrResourcePersistFailed = errors.New("resource persist failed")
)

// Error carries one of the Err* kinds so callers can branch with errors.Is
// while keeping the underlying diagnostic.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}
