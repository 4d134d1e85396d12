package errors

import "github.com/pkg/errors"

// StackTracer is implemented by errors that carry a pkg/errors stack trace.
// The logger uses it to surface the trace of the original failure site.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// TracedError annotates an underlying error with an operation message and
// guarantees a stack trace is attached somewhere in its chain.
type TracedError struct {
	msg string
	err error
}

// Trace wraps err with an operation message. A stack trace is captured at the
// call site unless err already carries one, so wrapping the same error twice
// keeps pointing at the original failure.
func Trace(err error, message string) *TracedError {
	if _, ok := err.(StackTracer); !ok {
		err = errors.WithStack(err)
	}
	return &TracedError{msg: message, err: err}
}

func (e *TracedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *TracedError) Unwrap() error {
	return e.err
}

// StackTrace returns the underlying error's stack trace.
func (e *TracedError) StackTrace() errors.StackTrace {
	if tracer, ok := e.err.(StackTracer); ok {
		return tracer.StackTrace()
	}
	return nil
}
