// Package errs defines the typed, recoverable errors the core surfaces to
// the request layer: (kind, message, context) values that map onto HTTP
// statuses at the edge.
package errs

import "errors"

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientStock Kind = "insufficient_stock"
	KindInvalidInput      Kind = "invalid_input"
	KindLimitExceeded     Kind = "limit_exceeded"
)

type Error struct {
	Kind    Kind
	Message string
	// Context carries structured detail (e.g. available quantity) for the
	// response body; may be nil.
	Context map[string]any
}

func (e *Error) Error() string { return e.Message }

func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func InvalidInput(msg string) *Error { return &Error{Kind: KindInvalidInput, Message: msg} }

func InsufficientStock(msg string, available int) *Error {
	return &Error{Kind: KindInsufficientStock, Message: msg, Context: map[string]any{"available": available}}
}

func LimitExceeded(msg string, ctx map[string]any) *Error {
	return &Error{Kind: KindLimitExceeded, Message: msg, Context: ctx}
}

// KindOf unwraps err looking for an *Error and reports its kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func IsNotFound(err error) bool { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool { return IsKind(err, KindConflict) }
