package secretary

import "net/http"

// SessionCookieName is the cookie carrying the session token; the name is part
// of the deployed client contract and must not change.
const SessionCookieName = "firebase-token"

// Secretary provides ciphering, password hashing and session token handling.
type Secretary interface {
	Encode(data string) string
	Decode(msg string) (string, error)
	HashPassword(password string) string
	NewToken(role string) (accessToken string, userID string, err error)
	GetTokenForUser(userID, role string) (string, error)
	ValidateToken(accessToken string) (userID string, role string, err error)
	SessionCookie(token string) *http.Cookie
	ExpiredSessionCookie() *http.Cookie
}
