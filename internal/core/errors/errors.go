package errors

import (
	"errors"
)

// Domain errors - these represent handshake failures
var (
	ErrTokenMissing = errors.New("access token missing")
	ErrTokenInvalid = errors.New("access token invalid or expired")
	ErrUserNotFound = errors.New("user not found")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for the handshake rejection taxonomy. The three codes
// let a client distinguish a missing credential from a bad one from a
// credential whose user no longer exists.

func NewTokenMissingError() *AppError {
	return &AppError{
		Err:        ErrTokenMissing,
		Message:    "Missing access token",
		Code:       "TOKEN_MISSING",
		StatusCode: 401,
	}
}

func NewTokenInvalidError(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrTokenInvalid, err),
		Message:    "Invalid or expired access token",
		Code:       "TOKEN_INVALID",
		StatusCode: 401,
	}
}

func NewUserNotFoundError() *AppError {
	return &AppError{
		Err:        ErrUserNotFound,
		Message:    "User no longer exists",
		Code:       "USER_NOT_FOUND",
		StatusCode: 403,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}
