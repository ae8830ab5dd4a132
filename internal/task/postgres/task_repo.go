// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package postgres implements task persistence on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/taskvault/taskvault/internal/store"
	"github.com/taskvault/taskvault/internal/task"
)

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

// TaskRepository implements task.Repository using PostgreSQL.
// Every statement is scoped by user_id.
type TaskRepository struct {
	db store.DBTX
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db store.DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create stores a new task and sets its ID.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`,
		t.UserID.String(),
		t.Title,
		t.Description,
		t.Completed,
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return oops.Code("TASK_INSERT_FAILED").
			With("operation", "insert task").
			With("user_id", t.UserID.String()).
			Wrap(err)
	}
	return nil
}

// List returns a page of the user's tasks, newest first, and the number
// of tasks matching the filter.
func (r *TaskRepository) List(ctx context.Context, userID uuid.UUID, opts task.ListOptions) ([]*task.Task, int, error) {
	db := store.Conn(ctx, r.db)

	var total int
	err := db.QueryRow(ctx, `
		SELECT count(*) FROM tasks
		WHERE user_id = $1 AND ($2::boolean IS NULL OR completed = $2)
	`, userID.String(), opts.Completed).Scan(&total)
	if err != nil {
		return nil, 0, oops.Code("TASK_COUNT_FAILED").
			With("operation", "count tasks").
			With("user_id", userID.String()).
			Wrap(err)
	}

	rows, err := db.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = $1 AND ($2::boolean IS NULL OR completed = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, userID.String(), opts.Completed, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, oops.Code("TASK_LIST_QUERY_FAILED").
			With("operation", "list tasks").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	tasks := make([]*task.Task, 0, opts.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, oops.With("operation", "list tasks").Wrap(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, oops.Code("TASK_LIST_QUERY_FAILED").
			With("operation", "iterate tasks").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return tasks, total, nil
}

// GetOwned retrieves a task by id, only if userID owns it.
func (r *TaskRepository) GetOwned(ctx context.Context, userID uuid.UUID, id int64) (*task.Task, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID.String())

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TASK_NOT_FOUND").
			With("task_id", id).
			With("user_id", userID.String()).
			Wrap(task.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TASK_GET_FAILED").
			With("operation", "get task").
			With("task_id", id).
			Wrap(err)
	}
	return t, nil
}

// Update writes the mutable fields of an owned task.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		UPDATE tasks SET
			title = $3,
			description = $4,
			completed = $5,
			updated_at = $6
		WHERE id = $1 AND user_id = $2
	`,
		t.ID,
		t.UserID.String(),
		t.Title,
		t.Description,
		t.Completed,
		t.UpdatedAt,
	)
	if err != nil {
		return oops.Code("TASK_UPDATE_FAILED").
			With("operation", "update task").
			With("task_id", t.ID).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TASK_NOT_FOUND").
			With("task_id", t.ID).
			Wrap(task.ErrNotFound)
	}
	return nil
}

// Delete removes an owned task.
func (r *TaskRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID.String())
	if err != nil {
		return oops.Code("TASK_DELETE_FAILED").
			With("operation", "delete task").
			With("task_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TASK_NOT_FOUND").
			With("task_id", id).
			Wrap(task.ErrNotFound)
	}
	return nil
}

// scanTask scans a single row into a Task.
// Callers are responsible for handling pgx.ErrNoRows.
func scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t         task.Task
		userIDStr string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&t.ID, &userIDStr, &t.Title, &t.Description, &t.Completed, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TASK_SCAN_FAILED").
			With("operation", "scan task").
			Wrap(err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("TASK_INVALID_USER_ID").
			With("operation", "parse task owner").
			With("user_id", userIDStr).
			Wrap(err)
	}
	t.UserID = userID
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return &t, nil
}

// Compile-time interface check.
var _ task.Repository = (*TaskRepository)(nil)
