// Package deletion removes duplicate files from disk on behalf of the scan
// session. It reports outcomes rather than errors so the caller decides
// whether to commit the matching store mutation.
package deletion

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dupefinder/internal/logging"
)

// Outcome reports whether a deletion happened.
type Outcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Deleter removes one file.
type Deleter interface {
	DeleteFile(ctx context.Context, path string) Outcome
}

// FileDeleter deletes regular files and symlinks from the local filesystem.
type FileDeleter struct {
	logger *slog.Logger
	remove func(string) error
}

// NewFileDeleter constructs a FileDeleter.
func NewFileDeleter(logger *slog.Logger) *FileDeleter {
	return &FileDeleter{
		logger: logging.NewComponentLogger(logger, "deletion"),
		remove: os.Remove,
	}
}

// DeleteFile removes path. Directories and missing paths are refused.
func (d *FileDeleter) DeleteFile(ctx context.Context, path string) Outcome {
	logger := logging.WithContext(ctx, d.logger)
	path = strings.TrimSpace(path)
	if path == "" {
		return Outcome{Error: "no file path provided"}
	}
	if !filepath.IsAbs(path) {
		return Outcome{Error: "path must be absolute"}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Error: err.Error()}
	}

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Outcome{Error: "file not found"}
		}
		return Outcome{Error: err.Error()}
	}
	if info.IsDir() {
		return Outcome{Error: "refusing to delete a directory"}
	}

	if err := d.remove(path); err != nil {
		logging.WarnWithContext(logger, "file deletion failed; file kept", "file_delete_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "duplicate remains on disk and in the result"),
			logging.String(logging.FieldErrorHint, "check file permissions"),
		)
		return Outcome{Error: err.Error()}
	}
	logger.Info("file deleted",
		logging.String(logging.FieldEventType, "file_deleted"),
		logging.String("path", path),
		logging.Int64("size_bytes", info.Size()),
	)
	return Outcome{Success: true}
}
