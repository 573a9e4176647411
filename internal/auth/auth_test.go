package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func newTestDirectory() *Directory {
	d := NewDirectory()
	d.cost = bcrypt.MinCost
	return d
}

func TestDirectory_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()

	u, err := d.Register(ctx, "  Ann@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID != "ann@example.com" || u.Email != u.ID {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !d.Exists("ann@example.com") {
		t.Fatal("registered user not found")
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: "ANN@example.com", password: "secret1"},
		{name: "wrong password", email: "ann@example.com", password: "secret2", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "bob@example.com", password: "secret1", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDirectory_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	if _, err := d.Register(ctx, "ann@example.com", "12345"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := d.Register(ctx, "not-an-email", "secret1"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := d.Register(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Register(ctx, "ANN@example.com", "other12"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLocalProvider_Transitions(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(newTestDirectory())

	var seen []string
	unsubscribe := p.Subscribe(func(u *User) {
		if u == nil {
			seen = append(seen, "none")
			return
		}
		seen = append(seen, u.ID)
	})

	if _, err := p.SignUp(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if got := p.CurrentUser(); got == nil || got.ID != "ann@example.com" {
		t.Fatalf("CurrentUser() = %+v", got)
	}
	if _, err := p.SignIn(ctx, "ann@example.com", "secret1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := p.SignIn(ctx, "ann@example.com", "wrong-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	p.Expire()
	p.Restore(User{ID: "ann@example.com", Email: "ann@example.com"})
	_ = p.SignOut(ctx)

	unsubscribe()
	p.Restore(User{ID: "late", Email: "late"})

	want := "none,ann@example.com,none,ann@example.com,none"
	if got := strings.Join(seen, ","); got != want {
		t.Fatalf("transitions = %s, want %s", got, want)
	}
}

func TestLocalProvider_CurrentUserIsCopy(t *testing.T) {
	p := NewLocalProvider(nil)
	p.Restore(User{ID: "a", Email: "a"})
	u := p.CurrentUser()
	u.ID = "mutated"
	if p.CurrentUser().ID != "a" {
		t.Fatal("CurrentUser exposed internal state")
	}
}

func TestTokens_IssueAndParse(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens := NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	tokens.now = func() time.Time { return now }

	signed, expires, err := tokens.Issue(User{ID: "ann@example.com", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Fatalf("expires = %v", expires)
	}

	u, err := tokens.Parse(signed)
	if err != nil || u.ID != "ann@example.com" {
		t.Fatalf("Parse() = %+v, %v", u, err)
	}

	now = now.Add(2 * time.Hour)
	u, err = tokens.Parse(signed)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if u.ID != "ann@example.com" {
		t.Fatalf("expired token should still name its user, got %+v", u)
	}
}

func TestTokens_RejectsTampered(t *testing.T) {
	tokens := NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	other := NewTokens("ffffffffffffffffffffffffffffffff", time.Hour)

	signed, _, _ := other.Issue(User{ID: "mallory", Email: "mallory"})
	if _, err := tokens.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
	if _, err := tokens.Parse("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: issuer}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := tokens.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}
