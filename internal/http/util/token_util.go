package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sifan077/hyperindex/internal/app/model"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token secret is not configured")
)

// Claims carries the caller identity inside an HS256 token.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int64 `json:"uid"`
	IsAdmin bool  `json:"adm,omitempty"`
}

// TokenVerifier issues and checks identity tokens so handlers stay small.
type TokenVerifier struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenVerifier returns a verifier for tokens signed with secret.
func NewTokenVerifier(secret []byte, ttl time.Duration) *TokenVerifier {
	return &TokenVerifier{
		secret: secret,
		ttl:    ttl,
	}
}

// Issue mints a token for the identity.
func (v *TokenVerifier) Issue(identity model.Identity) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", identity.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		UserID:  identity.UserID,
		IsAdmin: identity.IsAdmin,
	})
	return token.SignedString(v.secret)
}

// Verify checks signature and expiry and returns the identity in the token.
func (v *TokenVerifier) Verify(tokenString string) (model.Identity, error) {
	if len(v.secret) == 0 {
		return model.Identity{}, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.UserID <= 0 {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}
