package auth

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// Directory is the in-process user registry shared by every provider.
type Directory struct {
	mu    sync.RWMutex
	users map[string][]byte // email -> bcrypt hash
	cost  int
}

func NewDirectory() *Directory {
	return NewDirectoryWithCost(bcrypt.DefaultCost)
}

// NewDirectoryWithCost sets the bcrypt work factor. Out-of-range values fall back
// to bcrypt.DefaultCost.
func NewDirectoryWithCost(cost int) *Directory {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Directory{users: map[string][]byte{}, cost: cost}
}

// Register creates an account. The user id is the normalized email.
func (d *Directory) Register(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[email]; ok {
		return User{}, ErrEmailTaken
	}
	d.users[email] = hash
	return User{ID: email, Email: email}, nil
}

// Authenticate checks a password. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (d *Directory) Authenticate(_ context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	d.mu.RLock()
	hash, ok := d.users[email]
	d.mu.RUnlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return User{ID: email, Email: email}, nil
}

// Exists reports whether the user id is registered.
func (d *Directory) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.users[id]
	return ok
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
