// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *User
}

// Service provides account operations.
type Service struct {
	users  UserRepository
	tx     Transactor
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the clock used for account timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(users UserRepository, tx Transactor, hasher PasswordHasher, tokens TokenIssuer, opts ...ServiceOption) *Service {
	s := &Service{
		users:  users,
		tx:     tx,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates an account. The email is normalized before it is
// validated, checked for uniqueness and stored.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	var user *User
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		_, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return emailTaken(email)
		case !errors.Is(err, ErrNotFound):
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "get user by email").
				Wrap(err)
		}

		hash, err := s.hasher.Hash(password)
		if err != nil {
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}

		user, err = NewUser(email, hash, s.now())
		if err != nil {
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "build user").
				Wrap(err)
		}

		// Two registrations can pass the lookup concurrently; the unique
		// constraint decides, and the loser reports the same conflict.
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, ErrEmailTaken) {
				return emailTaken(email)
			}
			return oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "create user").
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func emailTaken(email string) error {
	return oops.Code("AUTH_EMAIL_TAKEN").
		With("email", email).
		Public("Email already registered").
		Wrap(ErrEmailTaken)
}

// Login verifies credentials and issues an access token.
// Uses constant-time operations to prevent timing-based email enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	user, lookupErr := s.users.GetByEmail(ctx, email)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		targetHash = dummyPasswordHash
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	// Always verify so unknown emails cost the same as wrong passwords.
	valid := s.hasher.Verify(password, targetHash)
	if lookupErr != nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").
			Public("Invalid email or password").
			Wrap(ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresIn: s.tokens.TTL(),
		User:      user,
	}, nil
}
