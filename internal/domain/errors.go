package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode classifies a failed request. Every code maps to one HTTP status.
type ErrorCode string

const (
	ErrInvalidInput      ErrorCode = "INVALID_INPUT"    // body or path does not decode
	ErrValidation        ErrorCode = "VALIDATION_ERROR" // decodes, but a required field is missing
	ErrValidationTimeout ErrorCode = "VALIDATION_TIMEOUT"
	ErrRateLimit         ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer    ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
)

// HTTPStatus returns the response status for the code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidInput, ErrValidation:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrValidationTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidRequest matches every ValidationError with errors.Is.
var ErrInvalidRequest = errors.New("invalid validation request")

// APIError is the body of every failed response. Field names the offending request
// field when the request was rejected before any rule ran.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status is the HTTP status the error is served with.
func (e *APIError) Status() int { return e.Code.HTTPStatus() }

// NewAPIError stamps a new error with the current time.
func NewAPIError(code ErrorCode, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// APIErrorFrom maps an error returned by CertificateValidator.Validate to a response.
// The request id is left for the caller to fill in.
func APIErrorFrom(err error) *APIError {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		apiErr := NewAPIError(ErrValidation, validationErr.Message, "", "")
		apiErr.Field = validationErr.Field
		return apiErr
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewAPIError(ErrValidationTimeout, "Validation did not complete in time", "", "")
	default:
		return NewAPIError(ErrInternalServer, "Validation failed", "", "")
	}
}

// ValidationError rejects a request whose shape the rules cannot work with, such as
// a missing signature date. Rule hits are never reported this way.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
