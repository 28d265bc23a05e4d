package common

import (
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeEmailExists   = "EMAIL_EXISTS"
	CodeCompanyExists = "COMPANY_EXISTS"
	CodeRateLimited   = "RATE_LIMITED"
	CodeInternal      = "INTERNAL_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
)

// AppError is an error with a stable client-facing code and HTTP status.
type AppError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithInternal returns a copy of e wrapping err for logs.
func (e *AppError) WithInternal(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

var (
	ErrEmailExists = &AppError{
		Code:    CodeEmailExists,
		Status:  http.StatusConflict,
		Message: "An account with this email already exists",
	}
	ErrCompanyExists = &AppError{
		Code:    CodeCompanyExists,
		Status:  http.StatusConflict,
		Message: "A company with this name already exists",
	}
	ErrRateLimited = &AppError{
		Code:    CodeRateLimited,
		Status:  http.StatusTooManyRequests,
		Message: "Too many signup attempts. Please try again later.",
	}
	ErrTenantNotFound = &AppError{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: "Tenant not found",
	}
	ErrUserNotFound = &AppError{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: "User not found",
	}
	ErrInternal = &AppError{
		Code:    CodeInternal,
		Status:  http.StatusInternalServerError,
		Message: "An internal error occurred",
	}
)
