// Package brokererr provides the closed taxonomy of typed errors used
// across hostbroker's boundary, lifecycle, provider, and storage layers.
package brokererr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is one of the closed set of error categories from the error
// handling design: each maps to a stable, coarse ErrorType string. The
// external JSON envelope's error_type is chosen separately, by
// pkg/boundary's errorTypeFor, from the Kind and the error's Details.
type Kind string

const (
	KindValidation             Kind = "Validation"
	KindNotFound               Kind = "NotFound"
	KindInvalidStateTransition Kind = "InvalidStateTransition"
	KindTransient              Kind = "Transient"
	KindProvider               Kind = "Provider"
	KindStorage                Kind = "Storage"
	KindTimeout                Kind = "Timeout"
	KindRateLimit              Kind = "RateLimit"
	KindInternal               Kind = "Internal"
)

// errorType maps a Kind to the stable string ErrorType returns. It is one
// string per Kind; it is not the envelope's metadata.error_type, which
// distinguishes e.g. TemplateNotFoundError from RequestNotFoundError.
var errorType = map[Kind]string{
	KindValidation:             "ValidationError",
	KindNotFound:               "NotFoundError",
	KindInvalidStateTransition: "InvalidStateTransitionError",
	KindTransient:              "TransientProviderError",
	KindProvider:               "ProviderError",
	KindStorage:                "StorageError",
	KindTimeout:                "TimeoutError",
	KindRateLimit:              "RateLimitExceeded",
	KindInternal:               "InternalError",
}

// Error is a typed, wrappable error carrying a Kind, a stable
// external-facing type string, and optional structured detail fields
// (operation name, resource id, correlation id).
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string
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

// ErrorType returns the stable string for the external envelope.
func (e *Error) ErrorType() string {
	if t, ok := errorType[e.Kind]; ok {
		return t
	}
	return errorType[KindInternal]
}

// WithDetail attaches a key/value detail and returns the same error for
// chaining at the construction site.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds an unwrapped typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation, NotFound, InvalidStateTransition, Transient, Provider,
// Storage, Timeout, and RateLimit are the constructors used throughout the
// codebase in place of ad hoc fmt.Errorf calls at a layer boundary.

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func NotFound(resource, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %q not found", resource, id)).
		WithDetail("resource", resource).WithDetail("id", id)
}

func InvalidStateTransition(aggregate, from, to string) *Error {
	aggregateType := aggregate
	if idx := strings.Index(aggregate, ":"); idx >= 0 {
		aggregateType = aggregate[:idx]
	}
	return New(KindInvalidStateTransition, fmt.Sprintf("%s: invalid transition %s -> %s", aggregate, from, to)).
		WithDetail("from", from).WithDetail("to", to).WithDetail("aggregate_type", aggregateType)
}

func Transient(operation string, err error) *Error {
	return Wrap(KindTransient, fmt.Sprintf("transient failure during %s", operation), err).
		WithDetail("operation", operation)
}

func Provider(operation string, err error) *Error {
	return Wrap(KindProvider, fmt.Sprintf("provider error during %s", operation), err).
		WithDetail("operation", operation)
}

func Storage(operation string, err error) *Error {
	return Wrap(KindStorage, fmt.Sprintf("storage error during %s", operation), err).
		WithDetail("operation", operation)
}

func Timeout(operation string) *Error {
	return New(KindTimeout, fmt.Sprintf("%s timed out", operation)).
		WithDetail("operation", operation)
}

func RateLimit(operation string) *Error {
	return New(KindRateLimit, fmt.Sprintf("rate limit exceeded for %s", operation)).
		WithDetail("operation", operation)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal error", err)
}

// As reports whether err (or any error in its chain) is a *Error, setting
// target on success — a thin wrapper over errors.As so callers don't need
// to import both packages.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is (or wraps) a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
