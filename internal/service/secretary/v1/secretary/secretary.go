// Package secretary provides methods for ciphering and session token handling.
package secretary

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/imellon/go-investa/internal/config"
	"github.com/imellon/go-investa/internal/models/modelclaims"
	secretaryv1 "github.com/imellon/go-investa/internal/service/secretary/v1"
)

// sessionMaxAge is five days, matching the hosted session lifetime.
const sessionMaxAge = 5 * 24 * time.Hour

// Secretary defines object structure and its attributes.
type Secretary struct {
	aesgcm cipher.AEAD
	nonce  []byte
	key    []byte
	secure bool
}

// NewSecretaryService initializes a secretary service with ciphering functionality.
func NewSecretaryService(c *config.SecretConfig, secureCookies bool) (*Secretary, error) {
	key := sha256.Sum256([]byte(c.SecretKey))
	aesblock, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(aesblock)
	if err != nil {
		return nil, err
	}
	nonce := key[len(key)-aesgcm.NonceSize():]
	return &Secretary{
		aesgcm: aesgcm,
		nonce:  nonce,
		key:    []byte(c.SecretKey),
		secure: secureCookies,
	}, nil
}

// Encode ciphers data using the previously established cipher.
func (s *Secretary) Encode(data string) string {
	encoded := s.aesgcm.Seal(nil, s.nonce, []byte(data), nil)
	return hex.EncodeToString(encoded)
}

// Decode deciphers data using the previously established cipher.
func (s *Secretary) Decode(msg string) (string, error) {
	msgBytes, err := hex.DecodeString(msg)
	if err != nil {
		return "", err
	}
	decoded, err := s.aesgcm.Open(nil, s.nonce, msgBytes, nil)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// HashPassword derives the stored password hash.
func (s *Secretary) HashPassword(password string) string {
	sum := sha256.Sum256(append([]byte(password), s.key...))
	return hex.EncodeToString(sum[:])
}

// NewToken generates a new userID and a signed session token for it.
func (s *Secretary) NewToken(role string) (string, string, error) {
	userID := uuid.New().String()
	accessToken, err := s.GetTokenForUser(userID, role)
	if err != nil {
		return "", "", err
	}
	return accessToken, userID, nil
}

// GetTokenForUser signs a session token for an existing userID.
func (s *Secretary) GetTokenForUser(userID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &modelclaims.SessionClaims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(sessionMaxAge).Unix(),
		},
	})
	return token.SignedString(s.key)
}

// ValidateToken verifies a session token and extracts its identity claims.
func (s *Secretary) ValidateToken(accessToken string) (string, string, error) {
	token, err := jwt.ParseWithClaims(accessToken, &modelclaims.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return "", "", err
	}
	if claims, ok := token.Claims.(*modelclaims.SessionClaims); ok && token.Valid {
		return claims.UserID, claims.Role, nil
	}
	return "", "", errors.New("invalid access token")
}

// SessionCookie wraps a session token into the httpOnly session cookie.
func (s *Secretary) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     secretaryv1.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie clears the session cookie.
func (s *Secretary) ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     secretaryv1.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
