package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"dupefinder/internal/fileutil"
	"dupefinder/internal/logging"
)

// Options controls a scan.
type Options struct {
	MinSize        int64
	FollowSymlinks bool
	// Workers bounds concurrent hashing; zero uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Group is a set of files with identical content.
type Group struct {
	Files []string `json:"files"`
	Hash  string   `json:"hash"`
}

// Report is the engine's scan output.
type Report struct {
	DuplicateGroups []Group `json:"duplicate_groups"`
	TotalFiles      int     `json:"total_files"`
	TotalDuplicates int     `json:"total_duplicates"`
}

type candidate struct {
	path string
	size int64
}

// Scan walks root and groups regular files by content. Walk errors abort the
// scan; files that fail to hash are skipped with a warning.
func Scan(ctx context.Context, root string, opts Options) (Report, error) {
	logger := logging.NewComponentLogger(opts.Logger, "engine")
	if opts.MinSize < 0 {
		return Report{}, fmt.Errorf("minimum size must be zero or positive, got %d", opts.MinSize)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Report{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return Report{}, err
	}
	if !info.IsDir() {
		return Report{}, fmt.Errorf("%s is not a directory", absRoot)
	}

	files, err := collect(ctx, absRoot, opts, logger)
	if err != nil {
		return Report{}, err
	}
	logger.Debug("walk complete", logging.String("root", absRoot), logging.Int("files", len(files)))

	bySize := make(map[int64][]string)
	for _, f := range files {
		bySize[f.size] = append(bySize[f.size], f.path)
	}
	var hashable []string
	for _, paths := range bySize {
		if len(paths) > 1 {
			hashable = append(hashable, paths...)
		}
	}

	digests, err := hashAll(ctx, hashable, opts.Workers, logger)
	if err != nil {
		return Report{}, err
	}

	byKey := make(map[string][]string)
	for path, digest := range digests {
		byKey[digest] = append(byKey[digest], path)
	}
	report := Report{DuplicateGroups: []Group{}, TotalFiles: len(files)}
	for digest, paths := range byKey {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		report.DuplicateGroups = append(report.DuplicateGroups, Group{Files: paths, Hash: digest})
		report.TotalDuplicates += len(paths)
	}
	sort.Slice(report.DuplicateGroups, func(i, j int) bool {
		return report.DuplicateGroups[i].Files[0] < report.DuplicateGroups[j].Files[0]
	})
	return report, nil
}

func collect(ctx context.Context, root string, opts Options, logger *slog.Logger) ([]candidate, error) {
	var (
		mu    sync.Mutex
		files []candidate
		seen  = make(map[string]struct{})
	)
	conf := &fastwalk.Config{Follow: opts.FollowSymlinks}
	err := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return fmt.Errorf("access %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}

		target := path
		var info fs.FileInfo
		switch {
		case opts.FollowSymlinks:
			// Files reached through a followed link are keyed by their real
			// path so one file never groups with itself.
			resolved, rerr := filepath.EvalSymlinks(path)
			if rerr != nil {
				logger.Warn("skipping unresolvable path", logging.String("path", path), logging.Error(rerr))
				return nil
			}
			info, rerr = os.Stat(resolved)
			if rerr != nil {
				logger.Warn("skipping unreadable symlink target", logging.String("path", resolved), logging.Error(rerr))
				return nil
			}
			target = resolved
		case d.Type()&fs.ModeSymlink != 0:
			return nil
		default:
			info, err = d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
		}
		if !info.Mode().IsRegular() || info.Size() < opts.MinSize {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if _, dup := seen[target]; dup {
			return nil
		}
		seen[target] = struct{}{}
		files = append(files, candidate{path: target, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func hashAll(ctx context.Context, paths []string, workers int, logger *slog.Logger) (map[string]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	jobs := make(chan string)
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		digests = make(map[string]string, len(paths))
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				digest, err := fileutil.HashFile(ctx, path)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						logger.Warn("skipping unreadable file", logging.String("path", path), logging.Error(err))
					}
					continue
				}
				mu.Lock()
				digests[path] = digest
				mu.Unlock()
			}
		}()
	}
feed:
	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return digests, nil
}
