// Package auth provides identity: a local user directory with bcrypt hashed
// passwords, per-client identity providers with change subscriptions, and HS256
// access tokens.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is a signed-in identity. ID scopes every ledger read and write.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Provider is one client's view of identity. Subscribers are told about every
// transition, and once immediately with the current state.
type Provider interface {
	CurrentUser() *User
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(*User)) (unsubscribe func())
}
