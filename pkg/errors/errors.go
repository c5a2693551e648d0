package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnverified         = errors.New("email not verified")
	ErrExpired            = errors.New("token expired")
	ErrRevoked            = errors.New("token revoked")
	ErrSecurityBreach     = errors.New("token reuse detected")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInactive           = errors.New("account deactivated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
)

// AppError represents a structured application error with HTTP status mapping.
// Details carries additional machine-readable context, such as the list of
// failed password policy rules.
type AppError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	Status  int      `json:"-"`
	Err     error    `json:"-"`
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

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidCredentials creates a 401 error with a deliberately generic message.
// The same message is used for unknown email and wrong password so callers
// cannot enumerate accounts.
func InvalidCredentials() *AppError {
	return &AppError{
		Code:    "INVALID_CREDENTIALS",
		Message: "invalid email or password",
		Status:  http.StatusUnauthorized,
		Err:     ErrInvalidCredentials,
	}
}

// Unverified creates a 401 error signaling that email verification is still
// pending. Unlike InvalidCredentials this one is distinguishable: it is only
// returned after the password has been verified.
func Unverified() *AppError {
	return &AppError{
		Code:    "EMAIL_NOT_VERIFIED",
		Message: "please verify your email before logging in",
		Status:  http.StatusUnauthorized,
		Err:     ErrUnverified,
	}
}

// Expired creates a 401 error for a token past its expiry.
func Expired(message string) *AppError {
	return &AppError{
		Code:    "TOKEN_EXPIRED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrExpired,
	}
}

// Revoked creates a 401 error for an explicitly invalidated token.
func Revoked(message string) *AppError {
	return &AppError{
		Code:    "TOKEN_REVOKED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrRevoked,
	}
}

// SecurityBreach creates a 401 error for detected refresh token reuse. The
// code is machine-readable so clients know to clear stored tokens and force a
// full re-login.
func SecurityBreach() *AppError {
	return &AppError{
		Code:    "SECURITY_BREACH",
		Message: "token reuse detected, all sessions have been revoked",
		Status:  http.StatusUnauthorized,
		Err:     ErrSecurityBreach,
	}
}

// WeakPassword creates a 400 error carrying the list of failed policy rules.
func WeakPassword(rules []string) *AppError {
	return &AppError{
		Code:    "WEAK_PASSWORD",
		Message: "password does not meet the security requirements",
		Details: rules,
		Status:  http.StatusBadRequest,
		Err:     ErrWeakPassword,
	}
}

// Inactive creates a 403 error for a deactivated account.
func Inactive() *AppError {
	return &AppError{
		Code:    "ACCOUNT_DEACTIVATED",
		Message: "account is deactivated",
		Status:  http.StatusForbidden,
		Err:     ErrInactive,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Internal creates a 500 error. The underlying error is kept for logging but
// never surfaced in the message.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnverified),
		errors.Is(err, ErrExpired), errors.Is(err, ErrRevoked),
		errors.Is(err, ErrSecurityBreach), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInactive), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
