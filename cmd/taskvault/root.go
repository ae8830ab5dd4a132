// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/taskvault/taskvault/internal/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
}

func (g *globalFlags) sources() config.Sources {
	return config.Sources{ConfigFile: config.FindFile(g.configFile), EnvFile: g.envFile}
}

// NewRootCmd creates the root command for the TaskVault CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "taskvault",
		Short: "TaskVault - a multi-tenant task API",
		Long: `TaskVault serves a JSON API where registered users manage
their own private task lists.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file path (default: XDG_CONFIG_HOME/taskvault/config.yaml when present)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded when present")

	cmd.AddCommand(newServeCmd(flags, deps))
	cmd.AddCommand(newMigrateCmd(flags, deps))

	return cmd
}
