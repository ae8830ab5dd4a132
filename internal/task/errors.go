// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package task

import "errors"

var (
	// ErrNotFound is returned when a task does not exist or belongs to another user.
	ErrNotFound = errors.New("task not found")

	// ErrInvalidInput marks rejected task fields or list options.
	ErrInvalidInput = errors.New("invalid input")
)
