package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution error.
type Kind string

const (
	// KindMalformedURI indicates text that does not match the compound URI
	// grammar.
	KindMalformedURI Kind = "malformed_uri"

	// KindUnknownScheme indicates that no scheme is registered under the
	// parsed scheme name.
	KindUnknownScheme Kind = "unknown_scheme"

	// KindConstructionFailure indicates that the object builder could not
	// produce a value.
	KindConstructionFailure Kind = "construction_failure"

	// KindDepthExceeded indicates nested resolution deeper than the
	// handler's limit, usually a cyclic configuration.
	KindDepthExceeded Kind = "depth_exceeded"

	// KindSchemeFailure is any other error returned by a scheme.
	KindSchemeFailure Kind = "scheme_failure"
)

// ResolveError is a classified resolution error carrying the raw text of
// the URI being resolved when it failed.
// nolint:revive // ResolveError reads better than Error at call sites
type ResolveError struct {
	// Kind is the error classification.
	Kind Kind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// URI is the raw text of the offending URI, if known.
	URI string `json:"uri,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.URI != "" {
		msg += fmt.Sprintf(" (uri=%s)", e.URI)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is matches another *ResolveError of the same kind, so
// errors.Is(err, &ResolveError{Kind: KindUnknownScheme}) works.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithURI sets the offending URI text.
func (e *ResolveError) WithURI(raw string) *ResolveError {
	e.URI = raw
	return e
}

// NewError creates a resolution error of the given kind.
func NewError(kind Kind, message string, err error) *ResolveError {
	return &ResolveError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewMalformedError creates a malformed URI error.
func NewMalformedError(raw string, err error) *ResolveError {
	return NewError(KindMalformedURI, "malformed compound uri", err).WithURI(raw)
}

// NewUnknownSchemeError creates an unknown scheme error.
func NewUnknownSchemeError(scheme, raw string) *ResolveError {
	return NewError(KindUnknownScheme, fmt.Sprintf("no scheme registered for %q", scheme), nil).WithURI(raw)
}

// NewConstructionError creates a construction failure error.
func NewConstructionError(message string, err error) *ResolveError {
	return NewError(KindConstructionFailure, message, err)
}

// NewDepthExceededError creates a depth exceeded error.
func NewDepthExceededError(limit int, raw string) *ResolveError {
	return NewError(KindDepthExceeded, fmt.Sprintf("resolution depth limit %d exceeded", limit), nil).WithURI(raw)
}

// wrap attaches the offending URI to err. The kind of an inner
// *ResolveError is kept; anything else becomes a scheme failure.
func wrap(message, raw string, err error) *ResolveError {
	kind := KindSchemeFailure
	var inner *ResolveError
	if errors.As(err, &inner) {
		kind = inner.Kind
	}
	return NewError(kind, message, err).WithURI(raw)
}

// KindOf returns the kind of the outermost *ResolveError in err's chain,
// or "" when there is none.
func KindOf(err error) Kind {
	var e *ResolveError
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsMalformedURI reports whether err is a malformed URI error.
func IsMalformedURI(err error) bool {
	return KindOf(err) == KindMalformedURI
}

// IsUnknownScheme reports whether err is an unknown scheme error.
func IsUnknownScheme(err error) bool {
	return KindOf(err) == KindUnknownScheme
}

// IsConstructionFailure reports whether err is a construction failure.
func IsConstructionFailure(err error) bool {
	return KindOf(err) == KindConstructionFailure
}

// IsDepthExceeded reports whether err is a depth exceeded error.
func IsDepthExceeded(err error) bool {
	return KindOf(err) == KindDepthExceeded
}
