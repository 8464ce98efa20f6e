package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeContainers()
	c.normalizeCompile()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.GameDataDir, err = expandPath(c.Paths.GameDataDir); err != nil {
		return fmt.Errorf("paths.game_data_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogDir) == "" {
		c.Paths.CatalogDir = defaultCatalogDir
	}
	if c.Paths.CatalogDir, err = expandPath(c.Paths.CatalogDir); err != nil {
		return fmt.Errorf("paths.catalog_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeContainers() {
	c.Containers.Primary = strings.TrimSpace(c.Containers.Primary)
	if c.Containers.Primary == "" {
		c.Containers.Primary = defaultPrimaryContainer
	}
	c.Containers.GlobalIndex = strings.TrimSpace(c.Containers.GlobalIndex)
	if c.Containers.GlobalIndex == "" {
		c.Containers.GlobalIndex = defaultGlobalIndex
	}
	c.Containers.OutputBundle = strings.TrimSpace(c.Containers.OutputBundle)
	if c.Containers.OutputBundle == "" {
		c.Containers.OutputBundle = defaultOutputBundle
	}
	c.Containers.InternalName = strings.TrimSpace(c.Containers.InternalName)
	if c.Containers.InternalName == "" {
		c.Containers.InternalName = defaultInternalName
	}
}

func (c *Config) normalizeCompile() {
	if c.Compile.IdentityWindow <= 0 {
		c.Compile.IdentityWindow = defaultIdentityWindow
	}
	c.Compile.LayoutsPath = strings.TrimSpace(c.Compile.LayoutsPath)
	if c.Compile.LayoutsPath != "" {
		if expanded, err := expandPath(c.Compile.LayoutsPath); err == nil {
			c.Compile.LayoutsPath = expanded
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
