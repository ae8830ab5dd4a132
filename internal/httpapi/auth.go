// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package httpapi

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/taskvault/taskvault/internal/auth"
)

const userContextKey = "taskvault.user"

// requireUser resolves the bearer token before any task route runs.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		user, err := s.resolver.Resolve(req.Context(), req.Header.Get(echo.HeaderAuthorization))
		if err != nil {
			s.recordAuthFailure(err)
			return err
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

func (s *Server) recordAuthFailure(err error) {
	if s.metrics == nil {
		return
	}
	stage := "unknown"
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil && code != "" {
			stage = fmt.Sprint(code)
		}
	}
	s.metrics.RecordAuthFailure(stage)
}

// currentUser returns the user stored by requireUser.
func currentUser(c echo.Context) *auth.User {
	user, _ := c.Get(userContextKey).(*auth.User)
	return user
}
