package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newAuth() *AuthService {
	return &AuthService{Password: "s3cret", JWTSecret: "signing-key", TokenTTL: time.Hour}
}

func TestLogin(t *testing.T) {
	a := newAuth()

	token, err := a.Login("s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" || token == "s3cret" {
		t.Fatalf("login returned %q, want a signed token", token)
	}
	if err := a.Verify(token); err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := newAuth()
	_, err := a.Login("guess")
	var unauth ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	_, err = a.Login("")
	var bad ErrBadRequest
	if !errors.As(err, &bad) {
		t.Fatalf("empty password err = %v, want ErrBadRequest", err)
	}
}

func TestVerifyAcceptsRawPassword(t *testing.T) {
	a := newAuth()
	if err := a.Verify("s3cret"); err != nil {
		t.Fatalf("verify raw password: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	a := newAuth()
	var unauth ErrUnauthorized
	if err := a.Verify(""); !errors.As(err, &unauth) {
		t.Fatalf("empty token err = %v, want ErrUnauthorized", err)
	}
	if err := a.Verify("not-a-token"); !errors.As(err, &unauth) {
		t.Fatalf("garbage token err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	other := &AuthService{Password: "s3cret", JWTSecret: "different-key", TokenTTL: time.Hour}
	token, err := other.Login("s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	a := newAuth()
	var unauth ErrUnauthorized
	if err := a.Verify(token); !errors.As(err, &unauth) {
		t.Fatalf("foreign token err = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := newAuth()
	claims := jwt.MapClaims{
		"role": "operator",
		"iat":  time.Now().Add(-2 * time.Hour).Unix(),
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.JWTSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	var unauth ErrUnauthorized
	if err := a.Verify(token); !errors.As(err, &unauth) {
		t.Fatalf("expired token err = %v, want ErrUnauthorized", err)
	}
}

func TestUnsetPasswordNeverMatches(t *testing.T) {
	a := &AuthService{JWTSecret: "signing-key"}
	var unauth ErrUnauthorized
	if err := a.Verify(""); !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if _, err := a.Login("anything"); !errors.As(err, &unauth) {
		t.Fatalf("login with unset password err = %v, want ErrUnauthorized", err)
	}
}
