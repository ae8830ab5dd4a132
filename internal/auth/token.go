// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// supportedAlgorithms lists the HMAC algorithms a TokenCodec can be configured with.
var supportedAlgorithms = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

// Claims is the payload of an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// UnmarshalJSON decodes a non-string user_id (a number, object, boolean)
// to its raw JSON text instead of failing, so a well-signed token with a
// malformed subject is reported as such rather than as an undecodable token.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type plain Claims
	var raw struct {
		plain
		UserID json.RawMessage `json:"user_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Claims(raw.plain)
	c.UserID = subjectText(raw.UserID)
	return nil
}

func subjectText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// TokenIssuer mints access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, error)
	TTL() time.Duration
}

// TokenVerifier checks access tokens.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// TokenCodec signs and verifies access tokens with a shared secret.
// Tokens are stateless: nothing is persisted and nothing can be revoked
// before it expires.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithTokenClock overrides the clock used for iat, exp and expiry checks.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec creates a codec for algorithm (HS256, HS384 or HS512).
// A non-positive ttl selects DefaultTokenTTL.
func NewTokenCodec(secret, algorithm string, ttl time.Duration, opts ...TokenOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, oops.Code("TOKEN_SECRET_EMPTY").Errorf("token signing secret cannot be empty")
	}
	method, ok := supportedAlgorithms[algorithm]
	if !ok {
		return nil, oops.Code("TOKEN_ALGORITHM_UNSUPPORTED").
			With("algorithm", algorithm).
			Errorf("unsupported token algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	c := &TokenCodec{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the given user that expires after TTL.
func (c *TokenCodec) Issue(userID uuid.UUID, email string) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("algorithm", c.method.Alg()).Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry of token and returns
// its claims. Every failure wraps ErrInvalidToken.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		code := "TOKEN_INVALID"
		if errors.Is(err, jwt.ErrTokenExpired) {
			code = "TOKEN_EXPIRED"
		}
		return nil, oops.Code(code).With("reason", err.Error()).Wrap(ErrInvalidToken)
	}
	return claims, nil
}
