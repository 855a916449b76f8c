package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Process exit codes surfaced by the conformer CLI.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConnectivity = 2
)

// Error codes.
const (
	CodeConnectivity = "CONNECTIVITY_FAILED"
	CodeTransform    = "TRANSFORM_SKIPPED"
	CodeConstraint   = "CONSTRAINT_VIOLATION"
	CodeStepFailed   = "STEP_FAILED"
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	ExitCode   int
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
	return &DomainError{Code: code, Message: message, ExitCode: ExitFailure, HTTPStatus: status, Details: details}
}

// NewConnectivityError reports that the named store could not be reached.
func NewConnectivityError(store string, err error) error {
	return &DomainError{
		Code:       CodeConnectivity,
		Message:    fmt.Sprintf("cannot reach %s", store),
		ExitCode:   ExitConnectivity,
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"store": store},
		Err:        err,
	}
}

// NewTransformError marks a single source record or value that could not be conformed.
func NewTransformError(message string, details map[string]any) error {
	return &DomainError{
		Code:       CodeTransform,
		Message:    message,
		ExitCode:   ExitFailure,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}

// NewConstraintError wraps a per-row constraint violation that was rolled back.
func NewConstraintError(table string, err error) error {
	return &DomainError{
		Code:       CodeConstraint,
		Message:    fmt.Sprintf("constraint violation on %s", table),
		ExitCode:   ExitFailure,
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"table": table},
		Err:        err,
	}
}

// NewStepError wraps the cause of a failed pipeline step. The exit code is
// inherited from the cause.
func NewStepError(step string, err error) error {
	return &DomainError{
		Code:       CodeStepFailed,
		Message:    fmt.Sprintf("step %s failed", step),
		ExitCode:   ExitCode(err),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"step": step},
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		ExitCode:   ExitFailure,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries a DomainError with the given code anywhere in its chain.
func IsCode(err error, code string) bool {
	for err != nil {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			return false
		}
		if domainErr.Code == code {
			return true
		}
		err = domainErr.Err
	}
	return false
}

// ExitCode maps an error to the process exit status. Connectivity failures
// anywhere in the chain win over the generic failure code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if IsCode(err, CodeConnectivity) {
		return ExitConnectivity
	}
	return ExitFailure
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
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts generic errors to DomainError.
func MapError(err error) error {
	return ToDomainError(err)
}
