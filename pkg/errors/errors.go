// Package errors defines the coded error type shared by services and the
// HTTP layer. A Code decides the response status, whether clients may retry
// and whether details are echoed back.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeInsufficientFunds   Code = "INSUFFICIENT_FUNDS"
	CodeOutOfStock          Code = "OUT_OF_STOCK"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final   = false
	retry   = true
	opaque  = false
	details = true
)

var registry = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, final, "validation failed", details},
	CodeUnauthorized:        {http.StatusUnauthorized, final, "authentication required", opaque},
	CodeForbidden:           {http.StatusForbidden, final, "access denied", opaque},
	CodeNotFound:            {http.StatusNotFound, final, "resource not found", opaque},
	CodeConflict:            {http.StatusConflict, final, "conflict detected", opaque},
	CodeStateConflict:       {http.StatusUnprocessableEntity, final, "state transition disallowed", details},
	CodeIdempotency:         {http.StatusConflict, final, "idempotency key reused", details},
	CodeRateLimit:           {http.StatusTooManyRequests, final, "rate limit exceeded", opaque},
	CodeInsufficientFunds:   {http.StatusConflict, final, "insufficient coin balance", details},
	CodeOutOfStock:          {http.StatusConflict, final, "benefit is out of stock", details},
	CodeConcurrencyConflict: {http.StatusConflict, retry, "another request is in progress, retry shortly", opaque},
	CodeInternal:            {http.StatusInternalServerError, retry, "internal server error", opaque},
	CodeDependency:          {http.StatusServiceUnavailable, retry, "dependency unavailable", details},
}

// MetadataFor looks up code, treating anything unregistered as internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := registry[code]; ok {
		return meta
	}
	return registry[CodeInternal]
}

// Error is a coded failure with an optional cause and caller-facing details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets details in place and returns e for chaining.
func (e *Error) WithDetails(d any) *Error {
	if e != nil {
		e.details = d
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is lets errors.Is match on code alone: errors.Is(err, New(CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && t.message == "" && t.code == e.code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	return As(err).codeOr("") == code
}

// Retryable reports whether a client may repeat the failed call unchanged.
// Uncoded errors count as internal and so are retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return MetadataFor(As(err).codeOr(CodeInternal)).Retryable
}

func (e *Error) codeOr(fallback Code) Code {
	if e == nil {
		return fallback
	}
	return e.code
}
