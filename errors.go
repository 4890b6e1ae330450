package acsqe

import "fmt"

// Kind is the closed error taxonomy the engine surfaces to callers. Kinds,
// not Go type names, are the stable contract: callers map a Kind to a
// transport status and a localized external string.
type Kind int

const (
	// KindUnauthenticated is never produced by this package; it is listed so
	// callers have a complete Kind switch. The HTTP layer resolves identity
	// before the core is invoked at all.
	KindUnauthenticated Kind = iota
	KindForbidden
	KindInvalidIdentifier
	KindUnknownColumn
	KindInvalidFilter
	KindGuardViolation
	KindReservedIdentifier
	KindSchemaMismatch
	KindExecutionFailed
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindUnknownColumn:
		return "unknown_column"
	case KindInvalidFilter:
		return "invalid_filter"
	case KindGuardViolation:
		return "guard_violation"
	case KindReservedIdentifier:
		return "reserved_identifier"
	case KindSchemaMismatch:
		return "schema_mismatch"
	case KindExecutionFailed:
		return "execution_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type pure components (C1-C7, C9) and effectful
// components (C8, executors) return. Message is safe to surface externally;
// Err, when present, is the internal/log-only cause (e.g. a wrapped SQLite
// error) and is never rendered into Message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Forbidden never includes which permission is missing, per the information-
// leak rationale in the error handling design: the caller only learns the
// action/resource it already knew it was requesting.
func Forbidden(message string) *Error {
	return newError(KindForbidden, "%s", message)
}
