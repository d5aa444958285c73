// Package middleware provides various middleware functionality.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/imellon/go-investa/internal/service/secretary/v1"
)

type contextKey string

const (
	userIDKey contextKey = "userID"
	roleKey   contextKey = "role"
)

// TokenVerifier resolves a session token into identity claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, role string, err error)
}

// LocalVerifier validates session tokens with the in-process secretary.
type LocalVerifier struct {
	sec secretary.Secretary
}

// NewLocalVerifier initializes a local token verifier.
func NewLocalVerifier(sec secretary.Secretary) (*LocalVerifier, error) {
	if sec == nil {
		return nil, errors.New("nil secretary object was found")
	}
	return &LocalVerifier{sec: sec}, nil
}

// Verify validates the token signature and expiry locally.
func (v *LocalVerifier) Verify(_ context.Context, token string) (string, string, error) {
	return v.sec.ValidateToken(token)
}

// SessionHandler sets object structure.
type SessionHandler struct {
	verifier TokenVerifier
}

// NewSessionHandler initializes a new session handler.
func NewSessionHandler(verifier TokenVerifier) (*SessionHandler, error) {
	if verifier == nil {
		return nil, errors.New("nil token verifier was found")
	}
	return &SessionHandler{verifier: verifier}, nil
}

// SessionHandle resolves the session cookie into identity claims on the
// request context. Requests without a valid session pass through anonymous;
// rejection is left to the per-group gates.
func (s *SessionHandler) SessionHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(secretary.SessionCookieName)
		if err == nil && cookie.Value != "" {
			userID, role, err := s.verifier.Verify(r.Context(), cookie.Value)
			if err == nil {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				ctx = context.WithValue(ctx, roleKey, role)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous API requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects API requests lacking the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == "" {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		if Role(r.Context()) != "admin" {
			http.Error(w, "Admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user identifier or an empty string.
func UserID(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

// Role returns the authenticated role or an empty string.
func Role(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}
