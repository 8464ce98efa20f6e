// Package testsupport provides shared helpers for tests: temp-dir configs,
// catalog stores, and synthetic container fixtures with known layouts.
package testsupport

import (
	"path/filepath"
	"testing"

	"modforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.GameDataDir = filepath.Join(base, "game")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CatalogDir = filepath.Join(base, "catalog")

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithIdentityWindow overrides the identity scan window on the test config.
func WithIdentityWindow(window int) ConfigOption {
	return func(c *config.Config) {
		c.Compile.IdentityWindow = window
	}
}

// WithCatalogDisabled turns off the scan cache for the test.
func WithCatalogDisabled() ConfigOption {
	return func(c *config.Config) {
		c.Catalog.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.GameDataDir)
}
