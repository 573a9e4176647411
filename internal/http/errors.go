package http

import (
	"errors"
	"net/http"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/session"
)

// AppError is the JSON error body. Internal is logged, never sent.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Internal }

func wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{Code: sentinel.Code, Message: sentinel.Message, StatusCode: sentinel.StatusCode, Internal: internal}
}

func withMessage(sentinel *AppError, msg string, internal error) *AppError {
	return &AppError{Code: sentinel.Code, Message: msg, StatusCode: sentinel.StatusCode, Internal: internal}
}

var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrTokenExpired       = &AppError{Code: "TOKEN_EXPIRED", Message: "Session expired, please sign in again", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrDuplicateEmail     = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}

	ErrInvalidInput    = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidation      = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", StatusCode: http.StatusUnprocessableEntity}
	ErrRateLimited     = &AppError{Code: "RATE_LIMITED", Message: "Rate limit exceeded, try again later", StatusCode: http.StatusTooManyRequests}
	ErrStoreFailure    = &AppError{Code: "STORE_UNAVAILABLE", Message: "The ledger store is unavailable", StatusCode: http.StatusBadGateway}
	ErrNotReady        = &AppError{Code: "NOT_READY", Message: "Service not ready", StatusCode: http.StatusServiceUnavailable}
	ErrInternalServer  = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrPayloadTooLarge = &AppError{Code: "PAYLOAD_TOO_LARGE", Message: "Request body too large", StatusCode: http.StatusRequestEntityTooLarge}
)

var validationErrors = []error{
	core.ErrInvalidType,
	core.ErrInvalidAmount,
	core.ErrUnknownCategory,
	core.ErrCategoryMismatch,
	core.ErrZeroDate,
	core.ErrDescriptionLength,
	core.ErrNegativeLimit,
	core.ErrNotBudgetCategory,
	auth.ErrWeakPassword,
	auth.ErrInvalidEmail,
}

// toAppError maps domain errors onto the wire shape. Anything unrecognized that
// reached a handler came from the store.
func toAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return withMessage(ErrValidation, v.Error(), err)
		}
	}
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return wrap(ErrInvalidCredentials, err)
	case errors.Is(err, auth.ErrEmailTaken):
		return wrap(ErrDuplicateEmail, err)
	case errors.Is(err, auth.ErrTokenExpired):
		return wrap(ErrTokenExpired, err)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, session.ErrNoUser):
		return wrap(ErrUnauthorized, err)
	}
	return wrap(ErrStoreFailure, err)
}
