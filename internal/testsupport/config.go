package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dupefinder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The engine runs in packaged mode from <base>/resources unless an option
// says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Engine.Mode = config.ModePackaged
	cfgVal.Engine.ResourcesDir = filepath.Join(base, "resources")
	cfgVal.Engine.DevBinDir = filepath.Join(base, "bin")
	cfgVal.Engine.SourceDir = base

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithLogLevel sets the logging level, typically to keep test output quiet.
func WithLogLevel(level string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Logging.Level = level
	}
}

// StubBuildTool returns a shell script usable as [engine] build_tool. Invoked
// as `<tool> build -o <out> <pkg>`, it copies engineSource to <out>.
func StubBuildTool(engineSource string) string {
	return fmt.Sprintf("#!/bin/sh\n[ \"$1\" = build ] || exit 64\ncp %q \"$3\" && chmod +x \"$3\"\n", engineSource)
}

// StubEngineScript returns a shell script that prints stdout and stderr and
// exits with code.
func StubEngineScript(stdout, stderr string, code int) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	if stdout != "" {
		fmt.Fprintf(&sb, "cat <<'__OUT__'\n%s\n__OUT__\n", stdout)
	}
	if stderr != "" {
		fmt.Fprintf(&sb, "cat >&2 <<'__ERR__'\n%s\n__ERR__\n", stderr)
	}
	fmt.Fprintf(&sb, "exit %d\n", code)
	return sb.String()
}

// WriteExecutable writes an executable script at path, creating parents.
func WriteExecutable(t testing.TB, path, script string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write executable %s: %v", path, err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
