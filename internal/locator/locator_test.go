package locator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dupefinder/internal/locator"
	"dupefinder/internal/services"
)

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

type countingBuilder struct {
	calls  int
	output string
	err    error
	create bool
	last   locator.BuildRequest
	t      *testing.T
}

func (b *countingBuilder) Build(_ context.Context, req locator.BuildRequest) ([]byte, error) {
	b.calls++
	b.last = req
	if b.create {
		writeExecutable(b.t, req.Output)
	}
	return []byte(b.output), b.err
}

func newLocator(t *testing.T, builder locator.Builder) (*locator.Locator, string) {
	t.Helper()
	root := t.TempDir()
	return locator.New(locator.Options{
		Name:         "dupefinder-engine",
		DevBinDir:    filepath.Join(root, "bin"),
		SourceDir:    root,
		ResourcesDir: filepath.Join(root, "resources"),
		BuildTool:    "go",
		BuildPackage: "./cmd/dupefinder-engine",
		Builder:      builder,
	}), root
}

func TestResolvePackagedPresent(t *testing.T) {
	builder := &countingBuilder{t: t}
	loc, root := newLocator(t, builder)
	want := filepath.Join(root, "resources", "bin", "dupefinder-engine")
	writeExecutable(t, want)

	got, err := loc.Resolve(context.Background(), locator.ModePackaged)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected path: got %q want %q", got, want)
	}
	if builder.calls != 0 {
		t.Fatalf("packaged mode must never build, got %d calls", builder.calls)
	}
}

func TestResolvePackagedMissingIsConfigurationError(t *testing.T) {
	builder := &countingBuilder{t: t, create: true}
	loc, _ := newLocator(t, builder)

	_, err := loc.Resolve(context.Background(), locator.ModePackaged)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if builder.calls != 0 {
		t.Fatalf("packaged mode must never build, got %d calls", builder.calls)
	}
}

func TestResolveDevelopmentPresentSkipsBuild(t *testing.T) {
	builder := &countingBuilder{t: t}
	loc, root := newLocator(t, builder)
	want := filepath.Join(root, "bin", "dupefinder-engine")
	writeExecutable(t, want)

	got, err := loc.Resolve(context.Background(), locator.ModeDevelopment)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != want || builder.calls != 0 {
		t.Fatalf("expected existing binary without build, got %q calls=%d", got, builder.calls)
	}
}

func TestResolveDevelopmentBuildsOnce(t *testing.T) {
	builder := &countingBuilder{t: t, create: true}
	loc, root := newLocator(t, builder)
	want := filepath.Join(root, "bin", "dupefinder-engine")

	got, err := loc.Resolve(context.Background(), locator.ModeDevelopment)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected path: got %q want %q", got, want)
	}
	if builder.calls != 1 {
		t.Fatalf("expected exactly one build, got %d", builder.calls)
	}
	if builder.last.Dir != root || builder.last.Output != want || builder.last.Package != "./cmd/dupefinder-engine" {
		t.Fatalf("unexpected build request: %+v", builder.last)
	}

	if _, err := loc.Resolve(context.Background(), locator.ModeDevelopment); err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if builder.calls != 1 {
		t.Fatalf("expected cached binary on second resolve, got %d builds", builder.calls)
	}
}

func TestResolveDevelopmentBuildFailureCarriesOutput(t *testing.T) {
	builder := &countingBuilder{t: t, output: "compile error: undefined: foo", err: errors.New("exit status 1")}
	loc, _ := newLocator(t, builder)

	_, err := loc.Resolve(context.Background(), locator.ModeDevelopment)
	if !errors.Is(err, services.ErrBuildFailed) {
		t.Fatalf("expected build failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "undefined: foo") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
	if builder.calls != 1 {
		t.Fatalf("expected exactly one build attempt, got %d", builder.calls)
	}
}

func TestResolveDevelopmentSuccessWithoutBinaryFails(t *testing.T) {
	builder := &countingBuilder{t: t}
	loc, _ := newLocator(t, builder)

	_, err := loc.Resolve(context.Background(), locator.ModeDevelopment)
	if !errors.Is(err, services.ErrBuildFailed) {
		t.Fatalf("expected build failure when binary never appears, got %v", err)
	}
	if builder.calls != 1 {
		t.Fatalf("expected exactly one build attempt, got %d", builder.calls)
	}
}

func TestStatusReportsNonExecutable(t *testing.T) {
	loc, root := newLocator(t, &countingBuilder{t: t})
	path := filepath.Join(root, "bin", "dupefinder-engine")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	status := loc.Status(locator.ModeDevelopment)
	if !status.Present {
		t.Fatal("expected file to be reported present")
	}
	if os.Geteuid() != 0 && status.Executable {
		t.Fatal("expected non-executable file to be reported")
	}

	missing := loc.Status(locator.ModePackaged)
	if missing.Present || missing.Available() || missing.Detail != "not found" {
		t.Fatalf("unexpected packaged status: %+v", missing)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    locator.Mode
		wantErr bool
	}{
		{in: "development", want: locator.ModeDevelopment},
		{in: " Packaged ", want: locator.ModePackaged},
		{in: "staging", wantErr: true},
	}
	for _, tt := range tests {
		got, err := locator.ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("ParseMode(%q) expected configuration error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
