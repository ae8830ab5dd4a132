// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

// Package httpapi exposes the account and task services as a JSON API.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/taskvault/taskvault/internal/auth"
	"github.com/taskvault/taskvault/internal/observability"
	"github.com/taskvault/taskvault/internal/task"
)

// AccountService registers users and exchanges credentials for tokens.
type AccountService interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// TaskService performs task operations scoped to one owner.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, in task.Input) (*task.Task, error)
	List(ctx context.Context, userID uuid.UUID, opts task.ListOptions) (*task.Page, error)
	Get(ctx context.Context, userID uuid.UUID, id int64) (*task.Task, error)
	Update(ctx context.Context, userID uuid.UUID, id int64, in task.Input) (*task.Task, error)
	Toggle(ctx context.Context, userID uuid.UUID, id int64, completed *bool) (*task.Task, error)
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
}

// IdentityResolver turns an Authorization header into a user.
type IdentityResolver interface {
	Resolve(ctx context.Context, header string) (*auth.User, error)
}

// Options configures the API server.
type Options struct {
	// Addr is the listen address used by Start.
	Addr    string
	Version string
	// AllowedOrigins lists CORS origins. Entries may be glob patterns
	// such as "https://*.example.com"; "*" allows any origin.
	AllowedOrigins []string
	Debug          bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics is optional. Nil disables request metrics.
	Metrics *observability.Metrics
}

// Server is the TaskVault HTTP API.
type Server struct {
	opts     Options
	echo     *echo.Echo
	logger   *slog.Logger
	metrics  *observability.Metrics
	accounts AccountService
	tasks    TaskService
	resolver IdentityResolver

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New builds the API server and registers its routes.
func New(opts Options, accounts AccountService, tasks TaskService, resolver IdentityResolver) (*Server, error) {
	origins, err := newOriginMatcher(opts.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = opts.Debug

	s := &Server{
		opts:     opts,
		echo:     e,
		logger:   logger,
		metrics:  opts.Metrics,
		accounts: accounts,
		tasks:    tasks,
		resolver: resolver,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: newRequestID,
	}))
	if s.metrics != nil {
		e.Use(requestMetrics(s.metrics))
	}
	e.Use(tracing())
	e.Use(accessLog(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.ErrorContext(c.Request().Context(), "panic recovered",
				"error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc:  origins.allow,
		AllowCredentials: true,
	}))

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.echo.GET("/", s.root)
	s.echo.GET("/health", s.health)

	api := s.echo.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)

	tasks := api.Group("/tasks", s.requireUser)
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.GET("/:id", s.getTask)
	tasks.PUT("/:id", s.updateTask)
	tasks.PATCH("/:id/complete", s.toggleTask)
	tasks.DELETE("/:id", s.deleteTask)
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving the API on Options.Addr.
// The returned channel receives a serve error, and is closed when the
// server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.opts.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_api_server").Wrap(err)
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
