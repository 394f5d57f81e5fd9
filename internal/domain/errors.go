package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for boundary handling. Handlers map kinds to
// HTTP statuses; services use them to branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
	KindGatewayFailure
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindGatewayFailure:
		return "gateway_failure"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged error. Reference carries a ledger reference number
// when one exists, so callers can look up the durable record behind a failure.
type Error struct {
	Kind      Kind
	Message   string
	Reference string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs a kind-tagged error.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Ef constructs a kind-tagged error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// ErrKind returns the kind of err, or KindUnknown if it carries none.
func ErrKind(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return ErrKind(err) == kind
}

// ErrReference returns the ledger reference attached to err, if any.
func ErrReference(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reference
	}
	return ""
}
