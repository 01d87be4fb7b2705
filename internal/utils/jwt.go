package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpired is returned for a correctly signed token whose exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers everything else: malformed, bad signature, wrong algorithm.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the payload of an access token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// JWT signs and parses HS256 access tokens.
type JWT struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWT creates a token signer. ttl defaults to 7 days.
func NewJWT(secret string, ttl time.Duration) *JWT {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWT{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (j *JWT) TTL() time.Duration {
	return j.ttl
}

// GenerateToken issues a token for the user and returns it with its expiry.
func (j *JWT) GenerateToken(userID uint, email string) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.ttl)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken validates tokenString. It returns ErrTokenExpired only when the
// signature checks out, so a forged expired token is still ErrTokenInvalid.
func (j *JWT) ParseToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := j.parse(tokenString, jwt.WithTimeFunc(j.now))
	if err == nil {
		if claims.UserID == 0 {
			return nil, ErrTokenInvalid
		}
		return claims, nil
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenInvalid
	}

	if _, verr := j.parse(tokenString, jwt.WithoutClaimsValidation()); verr != nil {
		return nil, ErrTokenInvalid
	}
	return nil, ErrTokenExpired
}

func (j *JWT) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	claims := &Claims{}
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
