package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/session"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("create: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{core.ErrNotBudgetCategory, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{auth.ErrEmailTaken, http.StatusConflict, "DUPLICATE_EMAIL"},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{auth.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{session.ErrNoUser, http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("list transactions: %w", errors.New("dial tcp: refused")), http.StatusBadGateway, "STORE_UNAVAILABLE"},
		{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	}
	for _, tt := range tests {
		got := toAppError(tt.err)
		if got.StatusCode != tt.status || got.Code != tt.code {
			t.Errorf("toAppError(%v) = %d %s, want %d %s", tt.err, got.StatusCode, got.Code, tt.status, tt.code)
		}
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	if !errors.Is(wrap(ErrStoreFailure, cause), cause) {
		t.Error("wrapped AppError should unwrap to its cause")
	}
}
