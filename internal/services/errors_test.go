package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"dupefinder/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrSpawn, "supervisor", "start", "exec failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrSpawn) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"supervisor", "start", "exec failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrParse, "", "", "", nil)
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrBuildFailed, "locator", "build", "", nil), "build_failed"},
		{services.Wrap(services.ErrSpawn, "supervisor", "start", "", nil), "spawn_error"},
		{fmt.Errorf("outer: %w", services.ErrEngineExecution), "engine_execution_failed"},
		{services.ErrParse, "parse_error"},
		{services.ErrScanAlreadyInProgress, "scan_already_in_progress"},
		{services.ErrIndexOutOfRange, "index_out_of_range"},
		{services.ErrDeletionFailed, "deletion_failed"},
		{services.ErrCancelled, "cancelled"},
		{errors.New("plain"), "error"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
