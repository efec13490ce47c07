package status

import (
	"errors"
	"fmt"
)

// Code classifies a failed status query.
type Code string

const (
	CodeHandlerFailure Code = "status_handler_failure"
	CodeHandlerPanic   Code = "status_handler_panic"
	CodeHandlerTimeout Code = "status_handler_timeout"
	CodeNoHandler      Code = "no_status_handler"
)

// ErrNoStatusHandler is wrapped by the Error returned when a plugin never
// registered a status handler.
var ErrNoStatusHandler = errors.New("no status handler registered")

// ErrHandlerExited is wrapped when a handler ends its goroutine without
// returning or panicking.
var ErrHandlerExited = errors.New("status handler exited without returning")

// Error is the structured form of a status handler failure. Message is the
// handler's text, unaltered.
type Error struct {
	Code    Code
	Message string
	err     error
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Message: err.Error(), err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// AsError extracts the *Error carried by err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
