package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. The API facade maps kinds to HTTP status
// codes; services and repositories only ever deal in kinds.
type Kind string

const (
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindInvalidQuantity    Kind = "INVALID_QUANTITY"
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindUnknownSymbol      Kind = "UNKNOWN_SYMBOL"
	KindNotFound           Kind = "NOT_FOUND"
	KindIllegalState       Kind = "ILLEGAL_STATE"
	KindDuplicate          Kind = "DUPLICATE"
	KindCapacity           Kind = "CAPACITY"
	KindInsufficientFunds  Kind = "INSUFFICIENT_FUNDS"
	KindInsufficientShares Kind = "INSUFFICIENT_SHARES"
	KindStalePrice         Kind = "STALE_PRICE"
	KindConflict           Kind = "CONFLICT"
	KindProviderError      Kind = "PROVIDER_ERROR"
	KindInternal           Kind = "INTERNAL"
)

// Error is a domain error with a kind and a user-presentable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new domain error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef creates a new domain error with a formatted message.
func Ef(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new domain error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Errors that are not domain
// errors classify as KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether the error chain contains a domain error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
