package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateCompile(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEngine() error {
	if c.Engine.StructuralVersion <= 0 {
		return errors.New("engine.structural_version must be positive")
	}
	if c.Engine.EngineVersion == "" {
		return errors.New("engine.engine_version must be set")
	}
	if c.Engine.PlayerVersion == "" {
		return errors.New("engine.player_version must be set")
	}
	return nil
}

func (c *Config) validateCompile() error {
	if c.Compile.IdentityWindow < 16 {
		return fmt.Errorf("compile.identity_window must be at least 16 bytes, got %d", c.Compile.IdentityWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
