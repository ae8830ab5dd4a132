// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned by repositories when a user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput marks rejected registration or login input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned by TokenCodec.Verify for any unusable token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthorized is returned by Resolver when a request carries no usable identity.
	ErrUnauthorized = errors.New("could not validate credentials")
)
