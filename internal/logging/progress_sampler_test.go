package logging_test

import (
	"testing"

	"dupefinder/internal/logging"
)

func TestProgressSamplerEmitsPerBucket(t *testing.T) {
	sampler := logging.NewProgressSampler(100)

	steps := []struct {
		total int64
		want  bool
	}{
		{0, true},
		{50, false},
		{99, false},
		{100, true},
		{150, false},
		{420, true},
		{430, false},
		{-1, false},
	}
	for _, step := range steps {
		if got := sampler.ShouldLog(step.total); got != step.want {
			t.Fatalf("ShouldLog(%d) = %v, want %v", step.total, got, step.want)
		}
	}

	sampler.Reset()
	if !sampler.ShouldLog(10) {
		t.Fatal("expected first call after Reset to emit")
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var sampler *logging.ProgressSampler
	if !sampler.ShouldLog(5) {
		t.Fatal("nil sampler should always log")
	}
	sampler.Reset()
}

func TestProgressSamplerDefaultBucket(t *testing.T) {
	sampler := logging.NewProgressSampler(0)
	if !sampler.ShouldLog(1) {
		t.Fatal("expected first emission")
	}
	if sampler.ShouldLog(64*1024 - 1) {
		t.Fatal("expected no emission inside the default bucket")
	}
	if !sampler.ShouldLog(64 * 1024) {
		t.Fatal("expected emission at default bucket boundary")
	}
}
