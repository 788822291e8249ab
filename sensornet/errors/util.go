package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Normalize well-known errors into sensor network errors.
func Normalize(err error, msg string) error {
	if e, ok := err.(*Error); ok {
		return e
	}

	switch {
	case err == nil:
		return nil

	case os.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return &Error{
			Message: fmt.Sprintf("%s timed out", msg),
			Kind:    Timeout,
		}

	case errors.Is(err, context.Canceled):
		return &Error{
			Message: fmt.Sprintf("%s cancelled", msg),
			Kind:    Cancellation,
		}

	default:
		return &Error{
			Message:     fmt.Sprintf("%s error: %s", msg, err.Error()),
			Kind:        UnknownError,
			NestedError: err,
		}
	}
}

// Is reports whether the error is a sensor network error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
