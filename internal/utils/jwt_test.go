package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-for-testing"

func TestGenerateToken(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	token, expiresAt, err := j.GenerateToken(1, "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if token == "" {
		t.Error("GenerateToken() returned empty token")
	}
	if len(token) < 50 {
		t.Errorf("token seems too short: %d chars", len(token))
	}
	if d := time.Until(expiresAt); d < 59*time.Minute || d > time.Hour {
		t.Errorf("expiresAt is %v from now, expected ~1h", d)
	}
}

func TestGenerateToken_UniquePerCall(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	token1, _, _ := j.GenerateToken(1, "a@example.com")
	token2, _, _ := j.GenerateToken(1, "a@example.com")

	if token1 == token2 {
		t.Error("two tokens for the same user should differ by jti")
	}
}

func TestParseToken(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	token, _, _ := j.GenerateToken(42, "alice@example.com")

	claims, err := j.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %d, expected 42", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("Email = %q, expected alice@example.com", claims.Email)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	invalidTokens := []string{
		"",
		"   ",
		"invalid",
		"not.a.token",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, token := range invalidTokens {
		_, err := j.ParseToken(token)
		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("ParseToken(%q) error = %v, expected ErrTokenInvalid", token, err)
		}
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, _ := NewJWT("original-secret", time.Hour).GenerateToken(1, "u@example.com")

	_, err := NewJWT("different-secret", time.Hour).ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, expected ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, _ := j.GenerateToken(1, "u@example.com")

	j.now = time.Now
	_, err := j.ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, expected ErrTokenExpired", err)
	}
}

func TestParseToken_ExpiredWithWrongSecretIsInvalid(t *testing.T) {
	signer := NewJWT("other-secret", time.Hour)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, _ := signer.GenerateToken(1, "u@example.com")

	_, err := NewJWT(testSecret, time.Hour).ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, expected ErrTokenInvalid", err)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = NewJWT(testSecret, time.Hour).ParseToken(token)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, expected ErrTokenInvalid", err)
	}
}

func TestParseToken_MissingUserID(t *testing.T) {
	j := NewJWT(testSecret, time.Hour)
	token, _, _ := j.GenerateToken(0, "u@example.com")

	if _, err := j.ParseToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, expected ErrTokenInvalid", err)
	}
}

func TestNewJWT_DefaultTTL(t *testing.T) {
	if got := NewJWT(testSecret, 0).TTL(); got != 7*24*time.Hour {
		t.Errorf("TTL = %v, expected 7 days", got)
	}
}
