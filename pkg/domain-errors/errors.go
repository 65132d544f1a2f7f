// Package domainerrors provides code-tagged errors for the ledger core.
// Services wrap store and engine failures with a Code so transport layers can
// translate them uniformly, and with a Kind naming the exact rejection so
// callers can branch on it. Details carry the values a caller needs to retry
// correctly (remaining allowance, next-allowed timestamp, window bounds).
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and retry semantics.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeRateLimited        Code = "rate_limited"
	CodeTooEarly           Code = "too_early"
	CodeTooLate            Code = "too_late"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// Error is the concrete error carried through service boundaries.
type Error struct {
	Code    Code
	Kind    string
	Message string
	Details map[string]any
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// With attaches a retry detail and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New builds an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewKind builds an error with a code, a caller-visible kind and a message.
func NewKind(code Code, kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Wrap annotates an underlying error with a code and message. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, err: err}
}

// Has reports whether err (or anything it wraps) carries the given code.
func Has(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Is reports whether err carries the given kind.
func Is(err error, kind string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind carried by err, or "" if none.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code carried by err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// DetailsOf returns the retry details carried by err, or nil.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeTooEarly, CodeTooLate:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
