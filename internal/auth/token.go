// Package auth issues and verifies identity tokens and hashes passwords.
package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for tokens past their expiry.
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the identity carried by a token.
type Claims struct {
	UserID   int    `json:"id"`
	Fullname string `json:"fullname"`
	Username string `json:"username"`
}

// IssueOptions controls token issuance. A zero ExpiresIn issues a token
// without an expiry.
type IssueOptions struct {
	ExpiresIn time.Duration
}

type tokenClaims struct {
	Claims
	jwt.RegisteredClaims
}

// TokenService signs identity tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService constructs a TokenService. The secret must not be blank.
func NewTokenService(secret string) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token over claims.
func (s *TokenService) Issue(claims Claims, opts IssueOptions) (string, error) {
	now := s.now()
	registered := jwt.RegisteredClaims{
		Subject:  strconv.Itoa(claims.UserID),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if opts.ExpiresIn > 0 {
		registered.ExpiresAt = jwt.NewNumericDate(now.Add(opts.ExpiresIn))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Claims:           claims,
		RegisteredClaims: registered,
	})
	return token.SignedString(s.secret)
}

// Verify checks the token signature and expiry and returns its claims.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid || claims.UserID < 1 {
		return Claims{}, ErrInvalidToken
	}
	return claims.Claims, nil
}
