// Package apierr implements the error taxonomy of §7: a small set of kinds
// that determine how an error propagates and what, if anything, reaches the
// caller. Modeled on the teacher's loginError (internal/auth): a wrapped
// cause plus enough metadata to pick an HTTP status without string-matching
// error text.
package apierr

import "fmt"

// Kind classifies an error for propagation and status-code purposes.
type Kind int

const (
	// KindValidation covers bad project_id, unknown column, invalid timezone.
	KindValidation Kind = iota
	// KindDecode covers OTLP protobuf/JSON parse failures.
	KindDecode
	// KindBackpressure covers a full topic or saturated downstream.
	KindBackpressure
	// KindStorage covers DB prepare/query/execute failures.
	KindStorage
	// KindNotFound covers a missing trace/session/span.
	KindNotFound
	// KindAuthorization covers membership/role failures.
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	case KindBackpressure:
		return "backpressure"
	case KindStorage:
		return "storage"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind and optional Retry-After hint
// (backpressure only). Error() includes the cause, for server-side logging;
// Public() is the text API callers see, and for storage errors it never
// carries DB internals.
type Error struct {
	Kind       Kind
	Msg        string
	RetryAfter int // seconds, only meaningful for KindBackpressure
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Public returns the message safe to show a client: verbatim for
// Validation/Decode/Backpressure/NotFound/Authorization, generic for
// Storage (the cause is logged server-side, never echoed).
func (e *Error) Public() string {
	if e.Kind == KindStorage {
		return "internal error"
	}
	return e.Msg
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Decode builds a KindDecode error wrapping the underlying parse failure.
func Decode(cause error, format string, args ...any) error {
	return &Error{Kind: KindDecode, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// Backpressure builds a KindBackpressure error with a Retry-After hint.
func Backpressure(retryAfterSecs int, format string, args ...any) error {
	return &Error{Kind: KindBackpressure, Msg: fmt.Sprintf(format, args...), RetryAfter: retryAfterSecs}
}

// Storage wraps a storage-layer failure. The cause is retained for logging
// but never surfaced to a client via Public().
func Storage(cause error, format string, args ...any) error {
	return &Error{Kind: KindStorage, Msg: fmt.Sprintf(format, args...), cause: cause}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Authorization builds a KindAuthorization error.
func Authorization(format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// As extracts the *Error carried by err, if any.
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	if ae, ok := err.(*Error); ok {
		return ae, true
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		return As(u.Unwrap())
	}
	return nil, false
}
