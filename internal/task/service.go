// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Transactor runs fn inside a single database transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service provides ownership-scoped task operations.
type Service struct {
	repo Repository
	tx   Transactor
	now  func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a new Service.
func NewService(repo Repository, tx Transactor, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, tx: tx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create adds a task for userID. New tasks start incomplete.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*Task, error) {
	title, desc, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	t := &Task{
		UserID:      userID,
		Title:       title,
		Description: desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, oops.Code("TASK_CREATE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return t, nil
}

// List returns a page of the user's tasks, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, opts ListOptions) (*Page, error) {
	opts, err := opts.effective()
	if err != nil {
		return nil, err
	}

	page := &Page{Limit: opts.Limit, Offset: opts.Offset}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		page.Tasks, page.Total, err = s.repo.List(ctx, userID, opts)
		return err
	})
	if err != nil {
		return nil, oops.Code("TASK_LIST_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	if page.Tasks == nil {
		page.Tasks = []*Task{}
	}
	return page, nil
}

// Get returns one of the user's tasks.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, id int64) (*Task, error) {
	var t *Task
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.owned(ctx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Update replaces the title and description of one of the user's tasks.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, id int64, in Input) (*Task, error) {
	title, desc, err := in.normalize()
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, id, func(t *Task) {
		t.Title = title
		t.Description = desc
	})
}

// Toggle sets the completion flag to *completed, or flips it when
// completed is nil.
func (s *Service) Toggle(ctx context.Context, userID uuid.UUID, id int64, completed *bool) (*Task, error) {
	return s.mutate(ctx, userID, id, func(t *Task) {
		if completed != nil {
			t.Completed = *completed
		} else {
			t.Completed = !t.Completed
		}
	})
}

// Delete removes one of the user's tasks. Deleting it again fails with
// ErrNotFound.
func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.owned(ctx, userID, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, userID, id); err != nil {
			return storeError(err, "delete task", id)
		}
		return nil
	})
}

// mutate applies change to an owned task and persists it with a fresh
// updated_at.
func (s *Service) mutate(ctx context.Context, userID uuid.UUID, id int64, change func(*Task)) (*Task, error) {
	var t *Task
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		var err error
		if t, err = s.owned(ctx, userID, id); err != nil {
			return err
		}
		change(t)
		t.UpdatedAt = s.timestamp()
		if err := s.repo.Update(ctx, t); err != nil {
			return storeError(err, "update task", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// owned is the single ownership check behind Get, Update, Toggle and
// Delete. A task that exists but belongs to someone else is reported as
// not found.
func (s *Service) owned(ctx context.Context, userID uuid.UUID, id int64) (*Task, error) {
	t, err := s.repo.GetOwned(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "get task", id)
	}
	return t, nil
}

func storeError(err error, operation string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return NotFound(id)
	}
	return oops.Code("TASK_STORE_FAILED").
		With("operation", operation).
		With("task_id", id).
		Wrap(err)
}

// NotFound builds the error reported for a missing or foreign task id.
func NotFound(id int64) error {
	return oops.Code("TASK_NOT_FOUND").
		With("task_id", id).
		Public(fmt.Sprintf("Task %d not found", id)).
		Wrap(ErrNotFound)
}
