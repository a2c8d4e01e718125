package usecase

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService guards the operator surfaces. Login exchanges the shared
// password for a short-lived JWT; Verify accepts either that JWT or
// the raw password as a bearer token.
type AuthService struct {
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

func (s *AuthService) Login(password string) (string, error) {
	if password == "" {
		return "", ErrBadRequest("password required")
	}
	if !s.passwordMatches(password) {
		return "", ErrUnauthorized("invalid password")
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := jwt.MapClaims{
		"role": "operator",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (s *AuthService) Verify(token string) error {
	if token == "" {
		return ErrUnauthorized("missing operator token")
	}
	if s.passwordMatches(token) {
		return nil
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return ErrUnauthorized("invalid operator token")
	}
	return nil
}

func (s *AuthService) passwordMatches(candidate string) bool {
	if s.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.Password)) == 1
}
