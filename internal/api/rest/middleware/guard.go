package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/imellon/go-investa/internal/models/modeldto"
	"github.com/imellon/go-investa/internal/service/secretary/v1"
)

// SuspensionCookieName flags a browser whose last session ended in a
// suspension so the next anonymous visit lands on the blocked notice instead
// of the login form.
const SuspensionCookieName = "suspension-notice"

// Guard kinds for page routes.
const (
	GuardUser     = "user"
	GuardAdmin    = "admin"
	GuardAuthOnly = "authOnly"
)

// AccountReader loads the account record backing a session.
type AccountReader interface {
	GetUser(ctx context.Context, userID string) (modeldto.User, error)
}

// PageGuard applies the shared route authorization policy to page routes.
type PageGuard struct {
	accounts AccountReader
	sec      secretary.Secretary
}

// NewPageGuard initializes a page guard.
func NewPageGuard(accounts AccountReader, sec secretary.Secretary) (*PageGuard, error) {
	if accounts == nil {
		return nil, errors.New("nil account reader was found")
	}
	if sec == nil {
		return nil, errors.New("nil secretary object was found")
	}
	return &PageGuard{accounts: accounts, sec: sec}, nil
}

// Guard returns the authorization middleware for a page route kind.
//
// Anonymous visitors go to /login, or to /account-blocked when the browser
// still carries a suspension notice. A suspended account is logged out on the
// spot. Admins hitting user pages are sent to /admin, while non-admins hitting
// admin pages are sent back to /login rather than any user page.
func (g *PageGuard) Guard(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				if kind == GuardAuthOnly {
					next.ServeHTTP(w, r)
					return
				}
				if _, err := r.Cookie(SuspensionCookieName); err == nil {
					http.Redirect(w, r, "/account-blocked", http.StatusSeeOther)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
			defer cancel()
			user, err := g.accounts.GetUser(ctx, userID)
			if err != nil {
				http.SetCookie(w, g.sec.ExpiredSessionCookie())
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if user.Suspended {
				http.SetCookie(w, g.sec.ExpiredSessionCookie())
				// the notice carries the ciphered suspension message so the
				// blocked page can render it without a session
				http.SetCookie(w, suspensionCookie(g.sec.Encode(user.SuspensionMessage)))
				http.Redirect(w, r, "/account-blocked", http.StatusSeeOther)
				return
			}
			switch kind {
			case GuardUser:
				if user.Role == "admin" {
					http.Redirect(w, r, "/admin", http.StatusSeeOther)
					return
				}
			case GuardAdmin:
				if user.Role != "admin" {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
			case GuardAuthOnly:
				if user.Role == "admin" {
					http.Redirect(w, r, "/admin", http.StatusSeeOther)
					return
				}
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func suspensionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     SuspensionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
