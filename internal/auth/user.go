// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Credential constraints.
const (
	MaxEmailLength    = 255
	MinPasswordLength = 8
)

// User is a registered account. UpdatedAt is set at creation and never
// refreshed, since no operation mutates a user after registration.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a User with a fresh random id. email must already be
// normalized and validated.
func NewUser(email, passwordHash string, now time.Time) (*User, error) {
	if passwordHash == "" {
		return nil, oops.Code("AUTH_PASSWORD_HASH_EMPTY").Errorf("password hash cannot be empty")
	}
	now = now.UTC()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims surrounding whitespace and lowercases email so
// lookups and the uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that a normalized email is a bare address with a
// dotted domain and fits the column.
func ValidateEmail(email string) error {
	if email == "" {
		return invalidInput("AUTH_EMAIL_EMPTY", "Email is required")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return invalidInput("AUTH_EMAIL_TOO_LONG", "Email must be at most 255 characters")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return invalidInput("AUTH_EMAIL_INVALID", "Invalid email address")
	}
	at := strings.LastIndexByte(email, '@')
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return invalidInput("AUTH_EMAIL_INVALID", "Invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length in characters.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalidInput("AUTH_PASSWORD_TOO_SHORT", "Password must be at least 8 characters")
	}
	return nil
}

func invalidInput(code, public string) error {
	return oops.Code(code).Public(public).Wrap(ErrInvalidInput)
}

// UserRepository persists users.
type UserRepository interface {
	// Create inserts user. A duplicate email fails with ErrEmailTaken.
	Create(ctx context.Context, user *User) error

	// GetByEmail returns the user with the normalized email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns the user with id, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
