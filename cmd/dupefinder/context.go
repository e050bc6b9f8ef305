package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"dupefinder/internal/config"
	"dupefinder/internal/deletion"
	"dupefinder/internal/locator"
	"dupefinder/internal/logging"
	"dupefinder/internal/services"
	"dupefinder/internal/session"
	"dupefinder/internal/settings"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logging: %w", err)
			return
		}
		if removed := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "*.log", cfg.LogPath()); removed > 0 {
			logger.Debug("pruned old log files", logging.Int("removed", removed))
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openSettings() (*settings.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return settings.Open(cfg)
}

func (c *commandContext) engineMode() (locator.Mode, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return locator.ParseMode(cfg.Engine.Mode)
}

func (c *commandContext) newLocator() (*locator.Locator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return locator.NewFromConfig(cfg, nil, logger), nil
}

// newCoordinator wires a scan coordinator. history may be nil.
func (c *commandContext) newCoordinator(history session.History) (*session.Coordinator, error) {
	loc, err := c.newLocator()
	if err != nil {
		return nil, err
	}
	mode, err := c.engineMode()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	opts := session.Options{
		Locator: loc,
		Mode:    mode,
		Deleter: deletion.NewFileDeleter(logger),
		Logger:  logger,
	}
	if history != nil {
		opts.History = history
	}
	return session.New(opts)
}

// acquireScanLock takes the cross-process lock guarding scans and result
// mutations. The returned release func is never nil.
func (c *commandContext) acquireScanLock() (func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return func() {}, err
	}
	lock := flock.New(cfg.ScanLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return func() {}, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !ok {
		return func() {}, services.Wrap(services.ErrScanAlreadyInProgress, "cli", "lock",
			"another dupefinder process holds "+cfg.ScanLockPath(), nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil && c.logger != nil {
			c.logger.Warn("failed to release scan lock", logging.Error(err))
		}
	}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
