// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package task implements per-user todo items. Every operation is scoped
// to the calling user; a task owned by someone else behaves exactly like
// one that does not exist.
package task

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Field and paging limits.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	DefaultListLimit     = 100
	MaxListLimit         = 1000
)

// Task is a single todo item.
type Task struct {
	ID          int64
	UserID      uuid.UUID
	Title       string
	Description *string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Input carries the user-editable fields for create and update.
type Input struct {
	Title       string
	Description *string
}

// normalize trims both fields and validates their lengths in characters.
// A blank description becomes nil.
func (in Input) normalize() (string, *string, error) {
	title := strings.TrimSpace(in.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		return "", nil, invalidInput("TASK_TITLE_EMPTY", "Title cannot be empty")
	case n > MaxTitleLength:
		return "", nil, invalidInput("TASK_TITLE_TOO_LONG", "Title must be at most 200 characters")
	}

	if in.Description == nil {
		return title, nil, nil
	}
	desc := strings.TrimSpace(*in.Description)
	if desc == "" {
		return title, nil, nil
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", nil, invalidInput("TASK_DESCRIPTION_TOO_LONG", "Description must be at most 1000 characters")
	}
	return title, &desc, nil
}

// ListOptions filters and pages List. A zero Limit selects DefaultListLimit.
type ListOptions struct {
	Completed *bool
	Limit     int
	Offset    int
}

// effective applies the default and the hard ceiling to Limit.
func (o ListOptions) effective() (ListOptions, error) {
	if o.Limit < 0 {
		return o, invalidInput("TASK_LIMIT_INVALID", "limit must be at least 1")
	}
	if o.Offset < 0 {
		return o, invalidInput("TASK_OFFSET_INVALID", "offset must be non-negative")
	}
	if o.Limit == 0 {
		o.Limit = DefaultListLimit
	}
	o.Limit = min(o.Limit, MaxListLimit)
	return o, nil
}

// Page is one page of List results. Total counts every matching task,
// independent of Limit and Offset.
type Page struct {
	Tasks  []*Task
	Total  int
	Limit  int
	Offset int
}

func invalidInput(code, public string) error {
	return oops.Code(code).Public(public).Wrap(ErrInvalidInput)
}

// Repository persists tasks. Lookups are always scoped by owner.
type Repository interface {
	// Create inserts t and sets its ID.
	Create(ctx context.Context, t *Task) error

	// List returns the owner's tasks newest first and the unpaged count.
	List(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]*Task, int, error)

	// GetOwned returns the task with id owned by userID, or ErrNotFound.
	GetOwned(ctx context.Context, userID uuid.UUID, id int64) (*Task, error)

	// Update writes title, description, completed and updated_at, or
	// returns ErrNotFound when the owned row is gone.
	Update(ctx context.Context, t *Task) error

	// Delete removes the owned task, or returns ErrNotFound.
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
}
