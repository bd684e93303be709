package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the class of failure
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeBlocked     ErrorType = "blocked"
	ErrorTypeExhausted   ErrorType = "exhausted"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Client-facing messages
const (
	MsgNoURL         = "No URL provided"
	MsgInvalidURL    = "Invalid Instagram URL"
	MsgNoShortcode   = "Could not extract video ID from URL"
	MsgExhausted     = "Unable to download video. This might be a private post, age-restricted content, or Instagram has blocked the request. Try with a different public Instagram video."
	SuggestExhausted = "Make sure the Instagram post is:\n" +
		"1. Public (not private account)\n" +
		"2. Not age-restricted\n" +
		"3. Not deleted\n" +
		"4. Accessible without login in your browser\n\n" +
		"Note: Some videos may be blocked on hosted servers. If this persists, the video might require login to view."
)

// Error represents a typed failure. Code carries an HTTP status when one
// was involved, Suggestion carries user guidance for exhaustion errors.
type Error struct {
	Type       ErrorType
	Message    string
	Code       int
	Suggestion string
	Err        error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without a cause
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates an Error around a cause
func Wrap(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// Validation returns a validation error with a client-facing message
func Validation(msg string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: msg, Code: http.StatusBadRequest}
}

// Exhausted returns the generic all-strategies-failed error. cause may be nil.
func Exhausted(cause error) *Error {
	return &Error{
		Type:       ErrorTypeExhausted,
		Message:    MsgExhausted,
		Suggestion: SuggestExhausted,
		Err:        cause,
	}
}

// FromStatus maps a non-2xx HTTP status to an Error
func FromStatus(code int, url string) *Error {
	return &Error{
		Type:    TypeForStatus(code),
		Message: fmt.Sprintf("unexpected status %d for %s", code, url),
		Code:    code,
	}
}

// TypeForStatus classifies an HTTP status code
func TypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden, code == http.StatusTooManyRequests:
		return ErrorTypeBlocked
	case code == http.StatusNotFound, code == http.StatusGone:
		return ErrorTypeNotFound
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// TypeOf returns the ErrorType of the first *Error in err's chain,
// or ErrorTypeInternal for untyped errors.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsValidation reports whether err is a request validation failure
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsExhausted reports whether err means every strategy came back empty
func IsExhausted(err error) bool {
	return TypeOf(err) == ErrorTypeExhausted
}

// IsClientFacing reports whether err should be shown to the caller as a 4xx
func IsClientFacing(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeExhausted:
		return true
	default:
		return false
	}
}

// As calls the standard library errors.As
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
