// Error types and handling
package brainus

import (
	"errors"
	"fmt"
)

// Kind identifies which failure condition an Error represents
type Kind string

const (
	// KindGeneric is the fallback for failures that match no other kind
	KindGeneric Kind = "BrainusError"
	// KindAuthentication indicates a missing or rejected API key (HTTP 401/403)
	KindAuthentication Kind = "AuthenticationError"
	// KindRateLimit indicates the server is throttling requests (HTTP 429)
	KindRateLimit Kind = "RateLimitError"
	// KindQuotaExceeded indicates the monthly quota is exhausted
	KindQuotaExceeded Kind = "QuotaExceededError"
	// KindAPI covers every other non-2xx response and transport failures
	KindAPI Kind = "APIError"
)

// Default messages used when the server supplies none
const (
	// DefaultAuthenticationMessage is the message of a KindAuthentication error without server text
	DefaultAuthenticationMessage = "Invalid or missing API key"
	// DefaultRateLimitMessage is the message of a KindRateLimit error without server text
	DefaultRateLimitMessage = "Rate limit exceeded"
	// DefaultQuotaExceededMessage is the message of a KindQuotaExceeded error without server text
	DefaultQuotaExceededMessage = "Monthly quota exceeded"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrGeneric        = &Error{Kind: KindGeneric}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrRateLimit      = &Error{Kind: KindRateLimit}
	ErrQuotaExceeded  = &Error{Kind: KindQuotaExceeded}
	ErrAPI            = &Error{Kind: KindAPI}
)

// Error is the single error type returned by the SDK.
//
// RetryAfter is only set for KindRateLimit and only when the server supplied a
// value. StatusCode is nil when no HTTP response was received.
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	StatusCode *int   `json:"status_code,omitempty"`
	RetryAfter *int   `json:"retry_after,omitempty"`

	cause error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.StatusCode != nil {
		msg = fmt.Sprintf("%s (status %d)", msg, *e.StatusCode)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying transport or decoding error, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error of the same Kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a generic failure
func NewError(message string) *Error {
	return &Error{Kind: KindGeneric, Message: message}
}

// NewAuthenticationError creates an authentication failure; an empty message
// gets the default one
func NewAuthenticationError(message string) *Error {
	if message == "" {
		message = DefaultAuthenticationMessage
	}
	return &Error{Kind: KindAuthentication, Message: message}
}

// NewRateLimitError creates a rate-limit failure. retryAfter may be nil.
func NewRateLimitError(message string, retryAfter *int) *Error {
	if message == "" {
		message = DefaultRateLimitMessage
	}
	return &Error{Kind: KindRateLimit, Message: message, RetryAfter: retryAfter}
}

// NewQuotaExceededError creates a quota failure
func NewQuotaExceededError(message string) *Error {
	if message == "" {
		message = DefaultQuotaExceededMessage
	}
	return &Error{Kind: KindQuotaExceeded, Message: message}
}

// NewAPIError creates an API failure. statusCode may be nil.
func NewAPIError(message string, statusCode *int) *Error {
	return &Error{Kind: KindAPI, Message: message, StatusCode: statusCode}
}

// wrapAPIError builds a KindAPI error for failures that never produced a
// usable response
func wrapAPIError(message string, cause error) *Error {
	return &Error{Kind: KindAPI, Message: message, cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsAuthentication reports whether err is an authentication failure
func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }

// IsRateLimit reports whether err is a rate-limit failure
func IsRateLimit(err error) bool { return KindOf(err) == KindRateLimit }

// IsQuotaExceeded reports whether err is a quota failure
func IsQuotaExceeded(err error) bool { return KindOf(err) == KindQuotaExceeded }

// IsAPIError reports whether err is an API or transport failure
func IsAPIError(err error) bool { return KindOf(err) == KindAPI }

// RetryAfterOf returns the server-supplied retry delay in seconds if err is a
// rate-limit failure that carried one
func RetryAfterOf(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit && e.RetryAfter != nil {
		return *e.RetryAfter, true
	}
	return 0, false
}
