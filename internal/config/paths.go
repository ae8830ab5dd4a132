// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskVault Contributors

package config

import (
	"os"
	"path/filepath"
)

const appName = "taskvault"

// Dir returns the XDG config directory for taskvault.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultFile is the config file read when --config is not given.
func DefaultFile() string {
	return filepath.Join(Dir(), "config.yaml")
}

// FindFile returns explicit when set, otherwise DefaultFile if it exists,
// otherwise "".
func FindFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path := DefaultFile()
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}
	return ""
}
