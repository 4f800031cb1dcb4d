package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups errors by how the caller recovers from them.
type Kind string

const (
	KindValidation Kind = "validation"
	KindBackend    Kind = "backend"
	KindHandoff    Kind = "handoff"
	KindInternal   Kind = "internal"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Kind       Kind
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
func NewDomainError(code string, kind Kind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Kind: kind, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", KindValidation, message, http.StatusUnprocessableEntity, details)
}

// NewBackendError reports a failed or rejected call to a remote collaborator.
func NewBackendError(code, message string, err error) error {
	return &DomainError{
		Code:       code,
		Kind:       KindBackend,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewHandoffError reports that the host platform could not open a deep link.
func NewHandoffError(code, message string, err error) error {
	return &DomainError{
		Code:       code,
		Kind:       KindHandoff,
		Message:    message,
		HTTPStatus: http.StatusFailedDependency,
		Err:        err,
	}
}

// NewInFlight reports a duplicate trigger of an operation that has not finished.
func NewInFlight(operation string) error {
	return &DomainError{
		Code:       "IN_FLIGHT",
		Kind:       KindBackend,
		Message:    "operación en curso",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"operation": operation},
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Kind:       KindValidation,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", KindValidation, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", KindValidation, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Kind:       KindInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// KindOf returns the error kind, or an empty Kind for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Kind
}

// CodeOf returns the error code, or an empty string for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
