// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package auth provides authentication primitives for TaskVault.
//
// # Primitives
//
//   - Argon2idHasher - hashes and verifies passwords as PHC strings
//   - TokenCodec - issues and verifies HMAC-signed bearer tokens
//   - Resolver - turns an Authorization header into a stored User
//
// # Services
//
// Service coordinates account operations (Register, Login) on top of a
// UserRepository. Writes run inside a Transactor so a failed registration
// leaves nothing behind.
//
// Every failure carries an oops code and wraps one of the package
// sentinels (ErrInvalidInput, ErrEmailTaken, ErrInvalidCredentials,
// ErrUnauthorized), which callers use for classification with errors.Is.
package auth
