package errors

import (
	"fmt"
)

// Kind represents the category of error in the platform's taxonomy.
// Kind determines the HTTP status an AppError maps to at the boundary.
type Kind int

const (
	// Validation - the CSO or request body failed structural rules
	KindValidation Kind = iota
	// Unauthorized - no session present
	KindUnauthorized
	// Forbidden - session present, action not permitted
	KindForbidden
	// NotFound - target resource does not exist
	KindNotFound
	// Conflict - a precondition failed (e.g. stale revision)
	KindConflict
	// Gone - target existed but was tombstoned
	KindGone
	// Idempotency - a pending idempotency record could not be reconciled
	KindIdempotency
	// RevisionConflict - supersedesId uniqueness lost a race
	KindRevisionConflict
	// Graph - unexpected graph store failure
	KindGraph
	// Internal - any other unexpected failure
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindGone:
		return "GONE"
	case KindIdempotency:
		return "IDEMPOTENCY"
	case KindRevisionConflict:
		return "REVISION_CONFLICT"
	case KindGraph:
		return "GRAPH"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

func statusFor(k Kind) int {
	switch k {
	case KindValidation:
		return 400
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict, KindIdempotency, KindRevisionConflict:
		return 409
	case KindGone:
		return 410
	default:
		return 500
	}
}

// AppError is the single error type the domain layer raises. The HTTP
// boundary maps it straight to {status, code, message, details} - see
// internal/httpapi.WriteError.
type AppError struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error's kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a detail field and returns the same error for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError of the given kind with a stable machine code.
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Status: statusFor(kind), Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(kind Kind, code, format string, args ...any) *AppError {
	return New(kind, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error as an AppError of the given kind.
func Wrap(err error, kind Kind, code, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: kind, Status: statusFor(kind), Code: code, Message: message, Cause: err}
}

// Convenience constructors, one per taxonomy entry in spec.md §7.

// Validation constructs a 400 for a malformed CSO or request body.
func Validation(code, message string) *AppError {
	return New(KindValidation, code, message)
}

func Validationf(code, format string, args ...any) *AppError {
	return Newf(KindValidation, code, format, args...)
}

// Unauthorized constructs a 401 for a missing session.
func Unauthorized(message string) *AppError {
	return New(KindUnauthorized, "unauthorized", message)
}

// Forbidden constructs a 403 for a disallowed action on a present session.
func Forbidden(message string) *AppError {
	return New(KindForbidden, "forbidden", message)
}

// NotFound constructs a 404 for a missing resource.
func NotFound(code, message string) *AppError {
	return New(KindNotFound, code, message)
}

// Conflict constructs a 409 for a failed precondition.
func Conflict(code, message string) *AppError {
	return New(KindConflict, code, message)
}

// Gone constructs a 410 for a tombstoned target.
func Gone(code, message string) *AppError {
	return New(KindGone, code, message)
}

// Idempotency constructs a 409 for an unreconciled pending record.
func Idempotency(message string) *AppError {
	return New(KindIdempotency, "idempotency_pending", message)
}

// RevisionConflict constructs a 409 for a lost supersedesId race.
func RevisionConflict(message string) *AppError {
	return New(KindRevisionConflict, "revision_conflict", message)
}

// Graph wraps a graph store failure as a 500.
func Graph(err error, message string) *AppError {
	return Wrap(err, KindGraph, "graph_error", message)
}

// Internal wraps any other unexpected failure as a 500.
func Internal(err error, message string) *AppError {
	return Wrap(err, KindInternal, "internal_error", message)
}

// Internalf wraps an unexpected failure with a formatted message.
func Internalf(err error, format string, args ...any) *AppError {
	return Wrap(err, KindInternal, "internal_error", fmt.Sprintf(format, args...))
}

// As extracts an *AppError from err, if one exists in its chain.
func As(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	if ae, ok := err.(*AppError); ok {
		return ae, true
	}
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return As(u.Unwrap())
	}
	return nil, false
}

// KindOf reports the Kind of err, or KindInternal if err isn't an AppError.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// StatusOf reports the HTTP status err maps to.
func StatusOf(err error) int {
	if ae, ok := As(err); ok {
		return ae.Status
	}
	return 500
}
