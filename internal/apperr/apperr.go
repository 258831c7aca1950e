// Package apperr defines the error taxonomy shared by the orchestrator and
// the HTTP layer. Domain code wraps one of the sentinel kinds; the API edge
// maps kinds to status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest covers invalid state transitions, ownership mismatches
	// and premature report requests.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates no session or conversation exists.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates an RPC call exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrInternal covers collaborator failures: model calls, document
	// fetches, store or broker connectivity.
	ErrInternal = errors.New("internal error")
)

func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrBadRequest, args)...)
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrNotFound, args)...)
}

func Timeout(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrTimeout, args)...)
}

func Internal(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, prepend(ErrInternal, args)...)
}

func prepend(err error, args []any) []any {
	return append([]any{err}, args...)
}
