package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/neurabot/neurabot-api/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// statusClientClosedRequest is the non-standard status used when the caller
// abandoned the request.
const statusClientClosedRequest = 499

var statusByCode = map[string]int{
	apperrors.CodeValidation:         http.StatusBadRequest,
	apperrors.CodeRateLimit:          http.StatusTooManyRequests,
	apperrors.CodeUpstreamConnection: http.StatusBadGateway,
	apperrors.CodeFatalUpstream:      http.StatusBadGateway,
	apperrors.CodeUnauthorized:       http.StatusUnauthorized,
	apperrors.CodeInvalidToken:       http.StatusForbidden,
	apperrors.CodeForbidden:          http.StatusForbidden,
	apperrors.CodeNotFound:           http.StatusNotFound,
	apperrors.CodeExpired:            http.StatusGone,
	apperrors.CodeLimitReached:       http.StatusGone,
	apperrors.CodeCancelled:          statusClientClosedRequest,
}

// fromDomainError translates an AppError into its transport representation.
// Unknown failures become internal_error without leaking details.
func fromDomainError(err error) *HTTPError {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	status, ok := statusByCode[appErr.Code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
	}
	httpErr := NewHTTPError(status, appErr.Code, appErr.Message, err)
	httpErr.RetryAfter = appErr.RetryAfter
	return httpErr
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return fromDomainError(err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
