package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	if value, ok := os.LookupEnv("DUPEFINDER_MODE"); ok && strings.TrimSpace(value) != "" {
		c.Engine.Mode = value
	}
	c.Engine.Mode = strings.ToLower(strings.TrimSpace(c.Engine.Mode))
	switch c.Engine.Mode {
	case "", "dev":
		c.Engine.Mode = ModeDevelopment
	case "prod", "production":
		c.Engine.Mode = ModePackaged
	}

	c.Engine.Name = strings.TrimSpace(c.Engine.Name)
	if c.Engine.Name == "" {
		c.Engine.Name = defaultEngineName
	}
	c.Engine.BuildTool = strings.TrimSpace(c.Engine.BuildTool)
	if c.Engine.BuildTool == "" {
		c.Engine.BuildTool = defaultBuildTool
	}
	c.Engine.BuildPackage = strings.TrimSpace(c.Engine.BuildPackage)
	if c.Engine.BuildPackage == "" {
		c.Engine.BuildPackage = defaultBuildPackage
	}

	var err error
	if strings.TrimSpace(c.Engine.SourceDir) == "" {
		c.Engine.SourceDir = defaultSourceDir
	}
	if c.Engine.SourceDir, err = expandPath(c.Engine.SourceDir); err != nil {
		return fmt.Errorf("engine.source_dir: %w", err)
	}
	if strings.TrimSpace(c.Engine.DevBinDir) == "" {
		c.Engine.DevBinDir = filepath.Join(c.Engine.SourceDir, "bin")
	}
	if c.Engine.DevBinDir, err = expandPath(c.Engine.DevBinDir); err != nil {
		return fmt.Errorf("engine.dev_bin_dir: %w", err)
	}

	if value, ok := os.LookupEnv("DUPEFINDER_RESOURCES_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Engine.ResourcesDir = value
	}
	if strings.TrimSpace(c.Engine.ResourcesDir) == "" {
		c.Engine.ResourcesDir = defaultResourcesDir()
	}
	if c.Engine.ResourcesDir, err = expandPath(c.Engine.ResourcesDir); err != nil {
		return fmt.Errorf("engine.resources_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// defaultResourcesDir mirrors the packaged layout: resources/ next to the
// installed dupefinder executable.
func defaultResourcesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}
