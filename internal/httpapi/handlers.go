// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskvault/taskvault/internal/task"
)

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, rootResponse{
		Message: "TaskVault API",
		Version: s.opts.Version,
		Status:  "running",
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        userResponse `json:"user"`
}

func (s *Server) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	user, err := s.accounts.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{
		UserID:  user.ID.String(),
		Email:   user.Email,
		Message: "User registered successfully",
	})
}

func (s *Server) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	res, err := s.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresIn:   int64(res.ExpiresIn / time.Second),
		User: userResponse{
			ID:    res.User.ID.String(),
			Email: res.User.Email,
		},
	})
}

type taskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (r taskRequest) input() task.Input {
	return task.Input{Title: r.Title, Description: r.Description}
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(t *task.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

type taskListResponse struct {
	Tasks  []taskResponse `json:"tasks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Server) listTasks(c echo.Context) error {
	var opts task.ListOptions
	var err error

	if opts.Completed, err = queryBool(c, "completed"); err != nil {
		return err
	}
	limit, set, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	if set && limit < 1 {
		return badRequest("limit must be at least 1")
	}
	opts.Limit = limit
	if opts.Offset, _, err = queryInt(c, "offset"); err != nil {
		return err
	}

	page, err := s.tasks.List(c.Request().Context(), currentUser(c).ID, opts)
	if err != nil {
		return err
	}

	resp := taskListResponse{
		Tasks:  make([]taskResponse, 0, len(page.Tasks)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, t := range page.Tasks {
		resp.Tasks = append(resp.Tasks, newTaskResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) createTask(c echo.Context) error {
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	t, err := s.tasks.Create(c.Request().Context(), currentUser(c).ID, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newTaskResponse(t))
}

func (s *Server) getTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	t, err := s.tasks.Get(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTaskResponse(t))
}

func (s *Server) updateTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var req taskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("Invalid request body")
	}

	t, err := s.tasks.Update(c.Request().Context(), currentUser(c).ID, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTaskResponse(t))
}

func (s *Server) toggleTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}
	completed, err := queryBool(c, "completed")
	if err != nil {
		return err
	}

	t, err := s.tasks.Toggle(c.Request().Context(), currentUser(c).ID, id, completed)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newTaskResponse(t))
}

func (s *Server) deleteTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(c.Request().Context(), currentUser(c).ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// taskID parses the :id path parameter. Anything that is not a positive
// integer cannot name a task, so it is reported as not found.
func taskID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}
	if id < 1 {
		return 0, task.NotFound(id)
	}
	return id, nil
}

// queryBool reads an optional boolean query parameter. Absent or empty
// yields nil.
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("Query parameter " + name + " must be a boolean")
	}
	return &v, nil
}

// queryInt reads an optional integer query parameter and reports whether
// it was present.
func queryInt(c echo.Context, name string) (int, bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, badRequest("Query parameter " + name + " must be an integer")
	}
	return v, true, nil
}
