// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/taskvault/taskvault/internal/auth"
	"github.com/taskvault/taskvault/internal/task"
	"github.com/taskvault/taskvault/pkg/errutil"
)

const (
	detailInternal     = "Internal server error"
	detailUnauthorized = "Could not validate credentials"
	detailBadRequest   = "Invalid request"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func badRequest(detail string) error {
	return echo.NewHTTPError(http.StatusBadRequest, detail)
}

// handleError is the echo error handler. It maps domain sentinels to
// status codes and renders only the user-safe message.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, detail := s.classify(c, err)
	if errors.Is(err, auth.ErrUnauthorized) {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Detail: detail})
	}
	if writeErr != nil {
		errutil.LogErrorContext(c.Request().Context(), s.logger, "write error response failed", writeErr)
	}
}

func (s *Server) classify(c echo.Context, err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
			return he.Code, msg
		}
		if he.Code < http.StatusInternalServerError {
			return he.Code, http.StatusText(he.Code)
		}
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, detailUnauthorized
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, oops.GetPublic(err, "Invalid email or password")
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, oops.GetPublic(err, "Email already registered")
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, task.ErrInvalidInput):
		return http.StatusBadRequest, oops.GetPublic(err, detailBadRequest)
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound, oops.GetPublic(err, "Task not found")
	}

	errutil.LogErrorContext(c.Request().Context(), s.logger, "request failed", err)
	return http.StatusInternalServerError, detailInternal
}
