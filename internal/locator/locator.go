package locator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dupefinder/internal/config"
	"dupefinder/internal/logging"
	"dupefinder/internal/services"
)

// Mode selects how the engine is found.
type Mode string

const (
	ModeDevelopment Mode = config.ModeDevelopment
	ModePackaged    Mode = config.ModePackaged
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeDevelopment:
		return ModeDevelopment, nil
	case ModePackaged:
		return ModePackaged, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "locator", "parse mode",
			fmt.Sprintf("unknown engine mode %q", value), nil)
	}
}

// Options configures a Locator.
type Options struct {
	Name         string
	DevBinDir    string
	SourceDir    string
	ResourcesDir string
	BuildTool    string
	BuildPackage string
	Builder      Builder
	Logger       *slog.Logger
}

// Locator resolves the engine binary path for a runtime mode.
type Locator struct {
	opts    Options
	builder Builder
	logger  *slog.Logger
}

// Status reports engine availability for one mode.
type Status struct {
	Mode       Mode
	Path       string
	Present    bool
	Executable bool
	Detail     string
}

// Available reports whether the engine can be launched as-is.
func (s Status) Available() bool {
	return s.Present && s.Executable
}

// New constructs a Locator. A nil Builder uses the command builder.
func New(opts Options) *Locator {
	builder := opts.Builder
	if builder == nil {
		builder = NewCommandBuilder()
	}
	return &Locator{
		opts:    opts,
		builder: builder,
		logger:  logging.NewComponentLogger(opts.Logger, "locator"),
	}
}

// NewFromConfig wires a Locator from the [engine] configuration section.
func NewFromConfig(cfg *config.Config, builder Builder, logger *slog.Logger) *Locator {
	return New(Options{
		Name:         cfg.EngineBinaryName(),
		DevBinDir:    cfg.Engine.DevBinDir,
		SourceDir:    cfg.Engine.SourceDir,
		ResourcesDir: cfg.Engine.ResourcesDir,
		BuildTool:    cfg.Engine.BuildTool,
		BuildPackage: cfg.Engine.BuildPackage,
		Builder:      builder,
		Logger:       logger,
	})
}

// Path returns the expected engine location for mode.
func (l *Locator) Path(mode Mode) string {
	if mode == ModePackaged {
		return filepath.Join(l.opts.ResourcesDir, "bin", l.opts.Name)
	}
	return filepath.Join(l.opts.DevBinDir, l.opts.Name)
}

// Locate checks the expected path without building. needsBuild is true only
// in development mode when the binary is absent.
func (l *Locator) Locate(mode Mode) (path string, needsBuild bool, err error) {
	status := l.Status(mode)
	if status.Available() {
		return status.Path, false, nil
	}
	switch mode {
	case ModePackaged:
		return "", false, services.Wrap(services.ErrConfiguration, "locator", "locate",
			"packaged engine unavailable at "+status.Path, errors.New(status.Detail))
	case ModeDevelopment:
		if status.Present {
			return "", false, services.Wrap(services.ErrConfiguration, "locator", "locate",
				"development engine not executable at "+status.Path, errors.New(status.Detail))
		}
		return status.Path, true, nil
	default:
		return "", false, services.Wrap(services.ErrConfiguration, "locator", "locate",
			fmt.Sprintf("unknown engine mode %q", mode), nil)
	}
}

// Resolve returns an executable engine path for mode, building it once in
// development mode when it is missing.
func (l *Locator) Resolve(ctx context.Context, mode Mode) (string, error) {
	path, needsBuild, err := l.Locate(mode)
	if err != nil {
		return "", err
	}
	if !needsBuild {
		l.logger.Debug("engine located", logging.String("path", path), logging.String("mode", string(mode)))
		return path, nil
	}
	return l.Build(ctx)
}

// Build runs the build tool for the development engine and verifies the
// binary exists afterwards.
func (l *Locator) Build(ctx context.Context) (string, error) {
	output := l.Path(ModeDevelopment)
	if strings.TrimSpace(l.opts.BuildTool) == "" {
		return "", services.Wrap(services.ErrBuildFailed, "locator", "build", "no build tool configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", services.Wrap(services.ErrBuildFailed, "locator", "build", "create bin directory", err)
	}

	req := BuildRequest{
		Tool:    l.opts.BuildTool,
		Package: l.opts.BuildPackage,
		Output:  output,
		Dir:     l.opts.SourceDir,
	}
	l.logger.Info("building engine",
		logging.String(logging.FieldEventType, "engine_build_started"),
		logging.String("tool", req.Tool),
		logging.String("package", req.Package),
		logging.String("output", req.Output),
		logging.String("dir", req.Dir),
	)
	started := time.Now()
	combined, err := l.builder.Build(ctx, req)
	detail := strings.TrimSpace(string(combined))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", services.Wrap(services.ErrCancelled, "locator", "build", "build interrupted", ctxErr)
		}
		if detail == "" {
			detail = "build tool reported failure"
		}
		logging.ErrorWithContext(l.logger, "engine build failed", "engine_build_failed",
			logging.Error(err),
			logging.String("output", detail),
			logging.String(logging.FieldErrorHint, "run the build command manually in "+req.Dir),
		)
		return "", services.Wrap(services.ErrBuildFailed, "locator", "build", detail, err)
	}

	status := l.Status(ModeDevelopment)
	if !status.Present {
		return "", services.Wrap(services.ErrBuildFailed, "locator", "build",
			"build reported success but engine missing at "+output, nil)
	}
	if !status.Executable {
		return "", services.Wrap(services.ErrBuildFailed, "locator", "build",
			"built engine is not executable", errors.New(status.Detail))
	}
	l.logger.Info("engine built",
		logging.String(logging.FieldEventType, "engine_build_completed"),
		logging.String("path", output),
		logging.Duration("elapsed", time.Since(started)),
	)
	return output, nil
}

// Status inspects the engine location for mode without side effects.
func (l *Locator) Status(mode Mode) Status {
	path := l.Path(mode)
	status := Status{Mode: mode, Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			status.Detail = "not found"
		} else {
			status.Detail = err.Error()
		}
		return status
	}
	if info.IsDir() {
		status.Detail = "is a directory"
		return status
	}
	status.Present = true
	if err := unix.Access(path, unix.X_OK); err != nil {
		status.Detail = fmt.Sprintf("not executable: %v", err)
		return status
	}
	status.Executable = true
	status.Detail = "ready"
	return status
}
