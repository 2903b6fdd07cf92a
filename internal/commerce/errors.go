package commerce

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	// KindValidation is a user-correctable input problem (bad coupon,
	// incomplete variant selection). Shown inline, safe to re-submit
	// after correction.
	KindValidation Kind = iota + 1
	// KindConflict is stale client state (variant sold out since last
	// view, submission already in flight). Requires a re-fetch or
	// re-validation before retrying.
	KindConflict
	// KindTransient is a transport-level failure. Surfaced with a retry
	// affordance; never retried automatically.
	KindTransient
	// KindTerminal is a business rule the client cannot work around
	// (insufficient loyalty balance, document already authorized).
	KindTerminal
	// KindNotFound covers lookups against missing remote entities.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindTerminal:
		return "terminal"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is the classified error type shared by every component that
// talks to the remote commerce API.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// NewError creates a classified error with no underlying cause.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the classification of err. Unclassified errors are
// treated as transient transport failures.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransient
}
