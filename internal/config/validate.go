package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.Mode {
	case ModeDevelopment, ModePackaged:
	default:
		return fmt.Errorf("engine.mode must be %q or %q, got %q", ModeDevelopment, ModePackaged, c.Engine.Mode)
	}
	if strings.TrimSpace(c.Engine.Name) == "" {
		return errors.New("engine.name must be set")
	}
	if strings.ContainsAny(c.Engine.Name, `/\`) {
		return errors.New("engine.name must be a file name, not a path")
	}
	if c.Engine.Mode == ModeDevelopment {
		if strings.TrimSpace(c.Engine.BuildTool) == "" {
			return errors.New("engine.build_tool must be set in development mode")
		}
		if strings.TrimSpace(c.Engine.DevBinDir) == "" {
			return errors.New("engine.dev_bin_dir must be set in development mode")
		}
	}
	if c.Engine.Mode == ModePackaged && strings.TrimSpace(c.Engine.ResourcesDir) == "" {
		return errors.New("engine.resources_dir must be set in packaged mode")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MinSize < 0 {
		return errors.New("scan.min_size must be zero or positive (bytes)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
