// ABOUTME: Centralized path resolution for pluginsync directories
// ABOUTME: Respects the PLUGINSYNC_HOME environment variable for isolation

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the pluginsync home directory
const HomeEnv = "PLUGINSYNC_HOME"

// MustHome returns the pluginsync home directory.
// Checks PLUGINSYNC_HOME env var first, falls back to ~/.pluginsync.
// Panics if PLUGINSYNC_HOME is set but invalid (whitespace-only or relative path).
// Panics if home directory cannot be determined.
func MustHome() string {
	if home := os.Getenv(HomeEnv); home != "" {
		home = strings.TrimSpace(home)
		if home == "" {
			panic(HomeEnv + " is set but contains only whitespace")
		}
		if !filepath.IsAbs(home) {
			panic(HomeEnv + " must be an absolute path: " + home)
		}
		return home
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic("cannot determine home directory: " + err.Error())
	}
	return filepath.Join(homeDir, ".pluginsync")
}

// DefaultConfigPath returns <home>/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(MustHome(), "config.yaml")
}

// EventsLogPath returns the audit log location under home
func EventsLogPath(home string) string {
	return filepath.Join(home, "events", "operations.log")
}
