// Package ragerr provides the structured error taxonomy shared by every
// component of the retrieval-augmented generation service.
package ragerr

import "fmt"

// Kind is one of the six error kinds of the surface error taxonomy.
// Components return their own kind; orchestrators translate at the
// boundary (never invent a seventh kind).
type Kind string

const (
	// Validation indicates malformed input at the boundary: unknown
	// file type, empty upload, invalid program name, missing
	// sensitivity confirmation, year out of range. Never recovered;
	// surfaced immediately with the offending field and an action hint.
	Validation Kind = "validation"

	// NotFound indicates a lookup of a known id returned nothing.
	NotFound Kind = "not_found"

	// Conflict indicates a uniqueness or state-machine violation:
	// duplicate program name, deleting a referenced program without
	// force.
	Conflict Kind = "conflict"

	// DependencyUnavailable indicates the vector index, metadata
	// store, or a provider is down. Distinguished from Transient
	// because retries at this layer will not help.
	DependencyUnavailable Kind = "dependency_unavailable"

	// Transient indicates a timeout, rate limit, or temporary provider
	// error. The caller may retry; the core does not retry internally
	// except where explicitly noted.
	Transient Kind = "transient"

	// Internal indicates an invariant violation, logged with full
	// context and surfaced as opaque.
	Internal Kind = "internal"
)

// Error is the structured error type returned across component
// boundaries.
type Error struct {
	Kind    Kind
	Message string
	Field   string

	// Details carries structured fields for user-visible bodies, e.g.
	// invalid_programs, valid_programs, action.
	Details map[string]any

	Cause error

	// Retryable mirrors Kind == Transient for callers that only check
	// a boolean; kept separate so a kind-preserving wrap can flip it
	// without changing Kind.
	Retryable bool

	Suggestion string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field=%s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is by Kind equality.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a structured detail field and returns e for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithField sets the offending field name.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSuggestion attaches an actionable suggestion.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

func newKind(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Retryable: kind == Transient,
	}
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return newKind(kind, message, nil)
}

// Wrap constructs an Error of the given kind from an existing error,
// preserving it as Cause. Returns nil if err is nil.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return newKind(kind, err.Error(), err)
}

// ValidationError constructs a Validation-kind error.
func ValidationError(message string) *Error { return New(Validation, message) }

// NotFoundError constructs a NotFound-kind error.
func NotFoundError(message string) *Error { return New(NotFound, message) }

// ConflictError constructs a Conflict-kind error.
func ConflictError(message string) *Error { return New(Conflict, message) }

// DependencyUnavailableError constructs a DependencyUnavailable-kind error.
func DependencyUnavailableError(message string, cause error) *Error {
	return newKind(DependencyUnavailable, message, cause)
}

// TransientError constructs a Transient-kind error.
func TransientError(message string, cause error) *Error {
	return newKind(Transient, message, cause)
}

// InternalError constructs an Internal-kind error.
func InternalError(message string, cause error) *Error {
	return newKind(Internal, message, cause)
}

// IsRetryable reports whether err is a Transient Error.
func IsRetryable(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Retryable
}

// KindOf extracts the Kind of err, returning "" if err is not an Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
