// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Resolver failure codes, one per stage of resolution. All of them wrap
// ErrUnauthorized; callers that need the stage read the oops code.
const (
	CodeHeaderMissing       = "AUTH_HEADER_MISSING"
	CodeHeaderMalformed     = "AUTH_HEADER_MALFORMED"
	CodeTokenInvalid        = "AUTH_TOKEN_INVALID"
	CodeTokenSubjectMissing = "AUTH_TOKEN_SUBJECT_MISSING"
	CodeTokenSubjectInvalid = "AUTH_TOKEN_SUBJECT_INVALID"
	CodeUserNotFound        = "AUTH_USER_NOT_FOUND"
)

// Resolver maps a bearer Authorization header to the user it names.
type Resolver struct {
	tokens TokenVerifier
	users  UserRepository
}

// NewResolver creates a new Resolver.
func NewResolver(tokens TokenVerifier, users UserRepository) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// Resolve validates header ("Bearer <token>") and loads the token's user.
// The user is re-read from the store on every call so a token for a
// deleted account stops working.
func (r *Resolver) Resolve(ctx context.Context, header string) (*User, error) {
	if strings.TrimSpace(header) == "" {
		return nil, oops.Code(CodeHeaderMissing).Wrap(ErrUnauthorized)
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, oops.Code(CodeHeaderMalformed).Wrap(ErrUnauthorized)
	}

	claims, err := r.tokens.Verify(parts[1])
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).With("reason", err.Error()).Wrap(ErrUnauthorized)
	}

	if claims.UserID == "" {
		return nil, oops.Code(CodeTokenSubjectMissing).Wrap(ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, oops.Code(CodeTokenSubjectInvalid).With("user_id", claims.UserID).Wrap(ErrUnauthorized)
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeUserNotFound).With("user_id", userID.String()).Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get user by id").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return user, nil
}
