package apierr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Category separates failures raised locally from failures reported by the service.
type Category string

const (
	CategoryClient  Category = "ClientError"
	CategoryService Category = "ServiceError"
)

// Kind is the subtype of a classified error.
type Kind string

// Client-side kinds.
const (
	KindNetwork          Kind = "Network"
	KindSerialization    Kind = "Serialization"
	KindCancelled        Kind = "Cancelled"
	KindUnknownOperation Kind = "UnknownOperation"
	KindMisuse           Kind = "Misuse"
)

// Service-side kinds.
const (
	KindThrottling       Kind = "Throttling"
	KindValidation       Kind = "Validation"
	KindResourceNotFound Kind = "ResourceNotFound"
	KindConflict         Kind = "Conflict"
	KindServerFault      Kind = "ServerFault"
	KindUnknown          Kind = "Unknown"
)

// Category returns the category a kind belongs to.
func (k Kind) Category() Category {
	switch k {
	case KindNetwork, KindSerialization, KindCancelled, KindUnknownOperation, KindMisuse:
		return CategoryClient
	default:
		return CategoryService
	}
}

// Error is a classified failure.
type Error struct {
	Category  Category
	Kind      Kind
	Retryable bool

	// Sent reports whether the request may have reached the service. It is
	// false only when the failure provably happened before any byte was written.
	Sent bool

	HTTPStatus int
	Code       string
	RequestID  string
	Operation  string
	Message    string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Category))
	b.WriteByte('/')
	b.WriteString(string(e.Kind))
	if e.Operation != "" {
		fmt.Fprintf(&b, " %s", e.Operation)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " [%s]", e.Code)
	}
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (status %d)", e.HTTPStatus)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	} else if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request id %s)", e.RequestID)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel kinds so callers can write errors.Is(err, apierr.ErrThrottling).
func (e *Error) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == Kind(k)
	}
	return false
}

// Permanent reports whether the outcome is final: a service answer that
// retrying will not change.
func (e *Error) Permanent() bool {
	return e.Category == CategoryService && !e.Retryable
}

type kindSentinel Kind

func (k kindSentinel) Error() string { return "apierr: " + string(k) }

// Sentinels for errors.Is comparisons against classified errors.
var (
	ErrNetwork          error = kindSentinel(KindNetwork)
	ErrSerialization    error = kindSentinel(KindSerialization)
	ErrCancelled        error = kindSentinel(KindCancelled)
	ErrUnknownOperation error = kindSentinel(KindUnknownOperation)
	ErrMisuse           error = kindSentinel(KindMisuse)
	ErrThrottling       error = kindSentinel(KindThrottling)
	ErrValidation       error = kindSentinel(KindValidation)
	ErrResourceNotFound error = kindSentinel(KindResourceNotFound)
	ErrConflict         error = kindSentinel(KindConflict)
	ErrServerFault      error = kindSentinel(KindServerFault)
	ErrUnknown          error = kindSentinel(KindUnknown)
)

// New creates a classified error of the given kind. Client kinds are never sent.
func New(kind Kind, operation, message string) *Error {
	cat := kind.Category()
	return &Error{
		Category:  cat,
		Kind:      kind,
		Retryable: defaultRetryable(kind),
		Sent:      cat == CategoryService,
		Operation: operation,
		Message:   message,
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, operation, format string, args ...any) *Error {
	return New(kind, operation, fmt.Sprintf(format, args...))
}

// Wrap creates a classified error of the given kind around cause.
func Wrap(kind Kind, operation string, cause error) *Error {
	e := New(kind, operation, "")
	e.Err = cause
	return e
}

// Cancelled builds the error returned when the caller's context ends a call.
func Cancelled(operation string, cause error) *Error {
	if cause == nil {
		cause = context.Canceled
	}
	e := Wrap(KindCancelled, operation, cause)
	e.Sent = true
	return e
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a classified error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

// IsRetryable reports whether err is a classified error with a retry verdict.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable
}

// RequestIDOf returns the remote request identifier attached to err.
func RequestIDOf(err error) string {
	if e, ok := As(err); ok {
		return e.RequestID
	}
	return ""
}

func defaultRetryable(k Kind) bool {
	switch k {
	case KindNetwork, KindThrottling, KindServerFault:
		return true
	default:
		return false
	}
}
