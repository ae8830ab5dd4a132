// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskvault/taskvault/pkg/errutil"
)

type fakeMigrator struct {
	upErr      error
	version    uint
	dirty      bool
	forced     *int
	ups, downs int
	steps      []int
	pending    []uint
	closed     bool
}

func (f *fakeMigrator) Up() error { f.ups++; return f.upErr }

func (f *fakeMigrator) Down() error { f.downs++; return nil }

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, nil }

func (f *fakeMigrator) Steps(n int) error { f.steps = append(f.steps, n); return nil }

func (f *fakeMigrator) Force(v int) error { f.forced = &v; return nil }

func (f *fakeMigrator) PendingMigrations() ([]uint, error) { return f.pending, nil }

func (f *fakeMigrator) Close() error { f.closed = true; return nil }

func migratorDeps(m *fakeMigrator, gotURL *string) *Deps {
	return &Deps{
		NewMigrator: func(url string) (SchemaMigrator, error) {
			if gotURL != nil {
				*gotURL = url
			}
			return m, nil
		},
	}
}

func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(deps)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, nil, "--help")
	require.NoError(t, err)

	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--env-file")
}

func TestRootCommand_Version(t *testing.T) {
	cmd := NewRootCmd()
	cmd.Version = "1.0.0 (commit: abc, built: today)"
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "1.0.0 (commit: abc, built: today)")
}

func TestServeCommand_Flags(t *testing.T) {
	out, err := execute(t, nil, "serve", "--help")
	require.NoError(t, err)

	for _, flag := range []string{"--skip-migrate", "--database-url", "--http-addr", "--metrics-addr", "--cors-origins", "--log-format"} {
		assert.Contains(t, out, flag)
	}
	assert.NotContains(t, out, "--auth-secret")
}

func TestMigrateUp(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	m := &fakeMigrator{}
	var gotURL string

	out, err := execute(t, migratorDeps(m, &gotURL),
		"--env-file", "", "migrate", "up", "--database-url", "postgres://u@db/app")

	require.NoError(t, err)
	assert.Equal(t, "postgres://u@db/app", gotURL)
	assert.Equal(t, 1, m.ups)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrateUp_NeedsOnlyDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")
	t.Setenv("AUTH_SECRET", "")
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "up")

	require.NoError(t, err)
	assert.Equal(t, 1, m.ups)
}

func TestMigrateUp_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "up")

	require.Error(t, err)
	assert.Zero(t, m.ups)
}

func TestMigrateUp_Failure(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")
	m := &fakeMigrator{upErr: errors.New("dirty database version 1")}

	_, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "up")

	require.Error(t, err)
	assert.True(t, m.closed, "migrator closed on failure")
}

func TestMigrateDown(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")
	m := &fakeMigrator{}

	out, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "down")

	require.NoError(t, err)
	assert.Equal(t, 1, m.downs)
	assert.Contains(t, out, "Rollback completed successfully")
}

func TestMigrateSteps(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")

	tests := []struct {
		name      string
		args      []string
		wantSteps []int
	}{
		{"up two", []string{"migrate", "up", "--steps", "2"}, []int{2}},
		{"down one", []string{"migrate", "down", "--steps", "1"}, []int{-1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{}

			_, err := execute(t, migratorDeps(m, nil), append([]string{"--env-file", ""}, tt.args...)...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, m.steps)
			assert.Zero(t, m.ups, "full up not run when --steps is set")
			assert.Zero(t, m.downs, "full down not run when --steps is set")
		})
	}
}

func TestMigrateSteps_Negative(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "up", "--steps=-1")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "INVALID_STEPS")
	assert.Empty(t, m.steps)
	assert.Zero(t, m.ups)
}

func TestMigrateStatus(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")

	tests := []struct {
		name  string
		m     *fakeMigrator
		wants string
	}{
		{"up to date", &fakeMigrator{version: 1}, "Version: 1\nPending: none\n"},
		{"fresh database", &fakeMigrator{pending: []uint{1, 2}}, "Version: 0\nPending: 1, 2\n"},
		{"dirty", &fakeMigrator{version: 1, dirty: true, pending: []uint{2}}, "Version: 1 (dirty)\nPending: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, migratorDeps(tt.m, nil), "--env-file", "", "migrate", "status")
			require.NoError(t, err)
			assert.Equal(t, tt.wants, out)
		})
	}
}

func TestMigrateVersion(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")

	tests := []struct {
		name  string
		m     *fakeMigrator
		wants string
	}{
		{"clean", &fakeMigrator{version: 1}, "Version: 1\n"},
		{"dirty", &fakeMigrator{version: 1, dirty: true}, "Version: 1 (dirty)\n"},
		{"none applied", &fakeMigrator{}, "Version: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, migratorDeps(tt.m, nil), "--env-file", "", "migrate", "version")
			require.NoError(t, err)
			assert.Equal(t, tt.wants, out)
		})
	}
}

func TestMigrateForce(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u@db/app")
	m := &fakeMigrator{}

	_, err := execute(t, migratorDeps(m, nil), "--env-file", "", "migrate", "force", "1")

	require.NoError(t, err)
	require.NotNil(t, m.forced)
	assert.Equal(t, 1, *m.forced)
}
