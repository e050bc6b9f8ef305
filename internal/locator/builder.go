package locator

import (
	"context"
	"os/exec"
	"strings"
)

// BuildRequest describes one engine build.
type BuildRequest struct {
	Tool    string
	Package string
	Output  string
	Dir     string
}

// Builder compiles the engine. Output is the tool's combined stdout/stderr.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (output []byte, err error)
}

// BuilderFunc adapts a function into a Builder.
type BuilderFunc func(ctx context.Context, req BuildRequest) ([]byte, error)

// Build implements Builder.
func (f BuilderFunc) Build(ctx context.Context, req BuildRequest) ([]byte, error) {
	return f(ctx, req)
}

type commandBuilder struct{}

// NewCommandBuilder returns a Builder that runs `<tool> build -o <output> <package>`.
func NewCommandBuilder() Builder {
	return commandBuilder{}
}

func (commandBuilder) Build(ctx context.Context, req BuildRequest) ([]byte, error) {
	args := []string{"build", "-o", req.Output}
	if pkg := strings.TrimSpace(req.Package); pkg != "" {
		args = append(args, pkg)
	}
	cmd := exec.CommandContext(ctx, req.Tool, args...) //nolint:gosec
	cmd.Dir = req.Dir
	return cmd.CombinedOutput()
}
