package errors

import (
	"errors"
	"time"
)

// Error codes shared by the domain and transport layers.
const (
	CodeValidation         = "validation"
	CodeRateLimit          = "rate_limit"
	CodeUpstreamConnection = "upstream_connection"
	CodeFatalUpstream      = "fatal_upstream"
	CodeUnauthorized       = "unauthorized"
	CodeInvalidToken       = "invalid_token"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeExpired            = "expired"
	CodeLimitReached       = "limit_reached"
	CodeStorage            = "storage_error"
	CodeCancelled          = "cancelled"
)

// AppError encodes domain specific error details.
type AppError struct {
	Code       string
	Message    string
	Err        error
	RetryAfter time.Duration
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// RateLimited builds a rate_limit error carrying a retry hint.
func RateLimited(message string, retryAfter time.Duration, err error) error {
	return &AppError{Code: CodeRateLimit, Message: message, Err: err, RetryAfter: retryAfter}
}

// IsCode helps handler differentiate failures.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost AppError in the chain.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// RetryAfterOf extracts the retry hint attached to a rate_limit error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
		return appErr.RetryAfter, true
	}
	return 0, false
}
