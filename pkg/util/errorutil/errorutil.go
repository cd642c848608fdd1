package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to callers of the service.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_FAILED"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeUnassignedDoneRejected = "UNASSIGNED_DONE_REJECTED"
	CodeTerminal               = "TERMINAL"
	CodeConflict               = "CONFLICT"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidTransition reports a status change that is not an edge of the status graph.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("invalid status transition from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

// NewUnassignedDoneRejected reports an attempt to finish a request nobody owns.
func NewUnassignedDoneRejected(requestID string) error {
	return NewDomainError(CodeUnassignedDoneRejected,
		"cannot mark request Done while unassigned",
		http.StatusConflict,
		map[string]any{"request_id": requestID})
}

// NewTerminal reports a mutation attempted on a request that reached its terminal status.
func NewTerminal(requestID string) error {
	return NewDomainError(CodeTerminal,
		"request is Done and can no longer change status",
		http.StatusConflict,
		map[string]any{"request_id": requestID})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStoreUnavailable wraps a transient storage failure.
func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsTransient reports whether the caller may retry the operation unchanged.
func IsTransient(err error) bool {
	return HasCode(err, CodeStoreUnavailable)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewStoreUnavailable(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}
