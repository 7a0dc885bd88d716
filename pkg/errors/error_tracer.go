package errors

import "github.com/pkg/errors"

// StackTracer is implemented by errors that carry a capture-site stack.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// ErrorTracer annotates an underlying error with a message while keeping its
// stack trace reachable for log output.
type ErrorTracer struct {
	Message string
	Err     error
}

// NewTracer returns an ErrorTracer with the given message and no underlying
// error yet; callers attach one with Wrap.
func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// Wrap attaches err as the underlying error, capturing a stack here unless
// err already carries one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	if _, ok := err.(StackTracer); ok {
		e.Err = err
	} else {
		e.Err = errors.WithStack(err)
	}
	return e
}

func (e *ErrorTracer) Error() string {
	return e.Message
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

// StackTrace exposes the underlying error's stack, or nil when none was
// captured.
func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}
