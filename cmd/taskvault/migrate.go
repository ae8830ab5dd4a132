// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/config"
)

func newMigrateCmd(flags *globalFlags, deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the database schema. Only DATABASE_URL
is required.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	withMigrator := func(run func(cmd *cobra.Command, args []string, m SchemaMigrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(cmd.Flags(), flags.sources())
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}
			m, err := deps.NewMigrator(cfg.DatabaseURL)
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
			}
			defer func() { _ = m.Close() }()
			return run(cmd, args, m)
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long:  `Apply all pending migrations, or only the next N with --steps.`,
		Args:  cobra.NoArgs,
	}
	upSteps := upCmd.Flags().Int("steps", 0, "apply at most this many migrations (0 applies all)")
	upCmd.RunE = withMigrator(func(cmd *cobra.Command, _ []string, m SchemaMigrator) error {
		if *upSteps < 0 {
			return oops.Code("INVALID_STEPS").With("steps", *upSteps).Errorf("--steps must not be negative, got %d", *upSteps)
		}
		cmd.Println("Running migrations...")
		var err error
		if *upSteps > 0 {
			err = m.Steps(*upSteps)
		} else {
			err = m.Up()
		}
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate up").With("steps", *upSteps).Wrap(err)
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})
	cmd.AddCommand(upCmd)

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back every migration, or only the last N with --steps.
Without --steps this drops all users and tasks.`,
		Args: cobra.NoArgs,
	}
	downSteps := downCmd.Flags().Int("steps", 0, "roll back at most this many migrations (0 rolls back all)")
	downCmd.RunE = withMigrator(func(cmd *cobra.Command, _ []string, m SchemaMigrator) error {
		if *downSteps < 0 {
			return oops.Code("INVALID_STEPS").With("steps", *downSteps).Errorf("--steps must not be negative, got %d", *downSteps)
		}
		cmd.Println("Rolling back migrations...")
		var err error
		if *downSteps > 0 {
			err = m.Steps(-*downSteps)
		} else {
			err = m.Down()
		}
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate down").With("steps", *downSteps).Wrap(err)
		}
		cmd.Println("Rollback completed successfully")
		return nil
	})
	cmd.AddCommand(downCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, _ []string, m SchemaMigrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
			}
			pending, err := m.PendingMigrations()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "list pending").Wrap(err)
			}
			printVersion(cmd, v, dirty)
			if len(pending) == 0 {
				cmd.Println("Pending: none")
				return nil
			}
			versions := make([]string, len(pending))
			for i, p := range pending {
				versions[i] = strconv.FormatUint(uint64(p), 10)
			}
			cmd.Printf("Pending: %s\n", strings.Join(versions, ", "))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, _ []string, m SchemaMigrator) error {
			v, dirty, err := m.Version()
			if err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
			}
			printVersion(cmd, v, dirty)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Mark the schema as being at VERSION and clear the dirty flag.
Use after repairing a failed migration by hand; -1 means no version.`,
		Args: cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, args []string, m SchemaMigrator) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "force version").With("version", v).Wrap(err)
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

func printVersion(cmd *cobra.Command, v uint, dirty bool) {
	if dirty {
		cmd.Printf("Version: %d (dirty)\n", v)
		return
	}
	cmd.Printf("Version: %d\n", v)
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer: %q", s)
	}
	return v, nil
}
