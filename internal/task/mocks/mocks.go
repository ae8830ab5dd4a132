// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package mocks provides testify mocks for the task package interfaces.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/taskvault/taskvault/internal/task"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockRepository is a mock task.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a mock that asserts its expectations on cleanup.
func NewMockRepository(t cleanupT) *MockRepository {
	m := &MockRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create records the call.
func (m *MockRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

// List records the call.
func (m *MockRepository) List(ctx context.Context, userID uuid.UUID, opts task.ListOptions) ([]*task.Task, int, error) {
	args := m.Called(ctx, userID, opts)
	tasks, _ := args.Get(0).([]*task.Task)
	return tasks, args.Int(1), args.Error(2)
}

// GetOwned records the call.
func (m *MockRepository) GetOwned(ctx context.Context, userID uuid.UUID, id int64) (*task.Task, error) {
	args := m.Called(ctx, userID, id)
	t, _ := args.Get(0).(*task.Task)
	return t, args.Error(1)
}

// Update records the call.
func (m *MockRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

// Delete records the call.
func (m *MockRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

// Transactor runs fn directly, with no database behind it.
type Transactor struct {
	Calls int
}

// InTransaction calls fn with ctx.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Calls++
	return fn(ctx)
}

var (
	_ task.Repository = (*MockRepository)(nil)
	_ task.Transactor = (*Transactor)(nil)
)
