// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package main

import (
	"context"

	"github.com/taskvault/taskvault/internal/store"
)

// Database is the connection pool used by serve.
type Database interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// SchemaMigrator wraps the methods used from store.Migrator.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// Deps contains injectable dependencies for the CLI commands.
// All fields with nil values will use their default implementations.
type Deps struct {
	// OpenDatabase connects the pool.
	// Default: store.Open
	OpenDatabase func(ctx context.Context, dsn string) (Database, error)

	// NewMigrator creates a schema migrator.
	// Default: store.NewMigrator
	NewMigrator func(databaseURL string) (SchemaMigrator, error)

	// Ready is called with the API listen address once serving starts.
	// Default: no-op
	Ready func(apiAddr string)
}

func (d *Deps) withDefaults() *Deps {
	out := &Deps{}
	if d != nil {
		*out = *d
	}
	if out.OpenDatabase == nil {
		out.OpenDatabase = func(ctx context.Context, dsn string) (Database, error) {
			pool, err := store.Open(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.NewMigrator == nil {
		out.NewMigrator = func(databaseURL string) (SchemaMigrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.Ready == nil {
		out.Ready = func(string) {}
	}
	return out
}
