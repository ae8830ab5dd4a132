// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/taskvault/taskvault/internal/auth"
	authpg "github.com/taskvault/taskvault/internal/auth/postgres"
	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/httpapi"
	"github.com/taskvault/taskvault/internal/logging"
	"github.com/taskvault/taskvault/internal/observability"
	"github.com/taskvault/taskvault/internal/store"
	"github.com/taskvault/taskvault/internal/task"
	taskpg "github.com/taskvault/taskvault/internal/task/postgres"
	"github.com/taskvault/taskvault/pkg/errutil"
)

const (
	serviceName     = "taskvault"
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(flags *globalFlags, deps *Deps) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the API server",
		Long: `Apply pending database migrations, then serve the TaskVault API
until SIGINT or SIGTERM. The metrics and health side port starts too unless
metrics-addr is empty.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(cmd.Flags(), flags.sources())
			if err != nil {
				return err
			}
			return runServe(ctx, cfg, skipMigrate, deps)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")

	return cmd
}

// runServe wires the services and blocks until ctx is cancelled or a
// server fails.
func runServe(ctx context.Context, cfg *config.Config, skipMigrate bool, deps *Deps) error {
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Debug:   cfg.Debug,
	})

	tp := newTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", "error", err)
		}
	}()

	logger.Info("starting taskvault",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"log_format", cfg.LogFormat,
	)

	if !skipMigrate {
		if err := applyMigrations(cfg.DatabaseURL, deps); err != nil {
			return err
		}
	}

	db, err := deps.OpenDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	codec, err := auth.NewTokenCodec(cfg.AuthSecret, cfg.JWTAlgorithm, cfg.TokenTTL())
	if err != nil {
		return err
	}

	tx := store.NewTransactor(db)
	users := authpg.NewUserRepository(db)
	accounts := auth.NewService(users, tx, auth.NewArgon2idHasher(), codec)
	tasks := task.NewService(taskpg.NewTaskRepository(db), tx)
	resolver := auth.NewResolver(codec, users)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, db.Ping)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		metrics = obsServer.Metrics()
	}

	api, err := httpapi.New(httpapi.Options{
		Addr:           cfg.HTTPAddr,
		Version:        version,
		AllowedOrigins: cfg.AllowedOrigins(),
		Debug:          cfg.Debug,
		Logger:         logger,
		Metrics:        metrics,
	}, accounts, tasks, resolver)
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}
	apiErrCh, err := api.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	logger.Info("taskvault ready", "addr", api.Addr())
	deps.Ready(api.Addr())
	<-ctx.Done()

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var stopErr error
	if err := api.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
		stopErr = err
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return serveResult(ctx, stopErr)
}

// errServerFailed is the cancellation cause when a server stops on its own
// rather than on a signal.
var errServerFailed = errors.New("server failed")

// serveResult is runServe's exit error: a server failure wins over a
// shutdown error, and a signal followed by a clean stop is success.
func serveResult(ctx context.Context, stopErr error) error {
	if cause := context.Cause(ctx); errors.Is(cause, errServerFailed) {
		return oops.Code("SERVER_FAILED").Wrap(cause)
	}
	return stopErr
}

func applyMigrations(databaseURL string, deps *Deps) error {
	m, err := deps.NewMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

func stopObservability(s *observability.Server, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		errutil.LogError(logger, "error stopping observability server", err)
	}
}

// monitorServerErrors cancels ctx with an errServerFailed cause when a
// server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, name string) {
	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel(fmt.Errorf("%s server: %w: %w", name, errServerFailed, err))
		}
	case <-ctx.Done():
	}
}

// newTracerProvider builds the process tracer provider. Spans are not
// exported; they give every request a trace and span id that the log
// handler attaches to each record.
func newTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)),
	)
}
