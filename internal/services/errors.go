package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBuildFailed           = errors.New("engine build failed")
	ErrSpawn                 = errors.New("engine spawn failed")
	ErrEngineExecution       = errors.New("engine execution failed")
	ErrParse                 = errors.New("engine output unreadable")
	ErrScanAlreadyInProgress = errors.New("scan already in progress")
	ErrIndexOutOfRange       = errors.New("index out of range")
	ErrDeletionFailed        = errors.New("deletion failed")
	ErrCancelled             = errors.New("scan cancelled")
	ErrConfiguration         = errors.New("configuration error")
	ErrValidation            = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short machine-readable name for the marker carried by err.
// Unknown errors report "error"; nil reports "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBuildFailed):
		return "build_failed"
	case errors.Is(err, ErrSpawn):
		return "spawn_error"
	case errors.Is(err, ErrEngineExecution):
		return "engine_execution_failed"
	case errors.Is(err, ErrParse):
		return "parse_error"
	case errors.Is(err, ErrScanAlreadyInProgress):
		return "scan_already_in_progress"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrDeletionFailed):
		return "deletion_failed"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
