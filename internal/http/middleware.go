package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"budgetwise/internal/auth"
	"budgetwise/internal/log"
)

type principalKey struct{}

type principal struct {
	user auth.User
	us   *userSession
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// requireAuth verifies the bearer token and attaches the user's session. An
// expired token also ends that user's cached session.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, r, ErrUnauthorized)
			return
		}
		u, err := s.tokens.Parse(raw)
		if errors.Is(err, auth.ErrTokenExpired) {
			s.sessions.expire(u.ID)
			log.FromContext(r.Context()).InfoContext(r.Context(), "Access token expired", log.FieldUserID, u.ID)
			writeError(w, r, err)
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}

		us := s.sessions.resume(r.Context(), u)
		ctx := context.WithValue(r.Context(), principalKey{}, principal{user: u, us: us})
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, u.ID))
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
