package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dupefinder/internal/deletion"
	"dupefinder/internal/groupstore"
	"dupefinder/internal/locator"
	"dupefinder/internal/logging"
	"dupefinder/internal/scanresult"
	"dupefinder/internal/services"
	"dupefinder/internal/settings"
	"dupefinder/internal/supervisor"
)

// State is a coordinator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateLocating  State = "locating"
	StateBuilding  State = "building"
	StateRunning   State = "running"
	StateParsing   State = "parsing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// InFlight reports whether a scan is active in this state.
func (s State) InFlight() bool {
	switch s {
	case StateLocating, StateBuilding, StateRunning, StateParsing:
		return true
	default:
		return false
	}
}

// ScanOptions is the input to one scan.
type ScanOptions struct {
	Directory      string
	MinSize        int64
	FollowSymlinks bool
}

// Validate checks that the directory is an existing absolute directory and
// the size threshold is non-negative.
func (o ScanOptions) Validate() error {
	if o.Directory == "" {
		return services.Wrap(services.ErrValidation, "session", "validate options", "directory is required", nil)
	}
	if !filepath.IsAbs(o.Directory) {
		return services.Wrap(services.ErrValidation, "session", "validate options",
			fmt.Sprintf("directory %q must be absolute", o.Directory), nil)
	}
	info, err := os.Stat(o.Directory)
	if err != nil {
		return services.Wrap(services.ErrValidation, "session", "validate options", "directory unavailable", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "session", "validate options",
			fmt.Sprintf("%q is not a directory", o.Directory), nil)
	}
	if o.MinSize < 0 {
		return services.Wrap(services.ErrValidation, "session", "validate options",
			fmt.Sprintf("minimum size must be zero or positive, got %d", o.MinSize), nil)
	}
	return nil
}

// Locator is the engine resolution the coordinator depends on.
type Locator interface {
	Locate(mode locator.Mode) (path string, needsBuild bool, err error)
	Build(ctx context.Context) (string, error)
}

// History records scan sessions. It is optional.
type History interface {
	BeginScan(ctx context.Context, rec settings.ScanRecord) error
	FinishScan(ctx context.Context, rec settings.ScanRecord) error
}

// Options wires a Coordinator.
type Options struct {
	Locator   Locator
	Mode      locator.Mode
	NewRunner func() supervisor.Runner
	Deleter   deletion.Deleter
	History   History
	Store     *groupstore.Store
	Logger    *slog.Logger
	NewID     func() string
}

// Coordinator runs at most one scan at a time and owns the result store.
type Coordinator struct {
	locator   Locator
	mode      locator.Mode
	newRunner func() supervisor.Runner
	deleter   deletion.Deleter
	history   History
	store     *groupstore.Store
	logger    *slog.Logger
	newID     func() string

	mu        sync.Mutex
	state     State
	sessionID string
	runner    supervisor.Runner
	cancel    context.CancelFunc
	stopped   atomic.Bool

	deleteMu sync.Mutex
}

// New constructs a Coordinator in the Idle state.
func New(opts Options) (*Coordinator, error) {
	if opts.Locator == nil {
		return nil, errors.New("session: locator is required")
	}
	if opts.Deleter == nil {
		return nil, errors.New("session: deleter is required")
	}
	c := &Coordinator{
		locator:   opts.Locator,
		mode:      opts.Mode,
		newRunner: opts.NewRunner,
		deleter:   opts.Deleter,
		history:   opts.History,
		store:     opts.Store,
		logger:    logging.NewComponentLogger(opts.Logger, "session"),
		newID:     opts.NewID,
		state:     StateIdle,
	}
	if c.mode == "" {
		c.mode = locator.ModePackaged
	}
	if c.newRunner == nil {
		logger := opts.Logger
		c.newRunner = func() supervisor.Runner { return supervisor.New(logger) }
	}
	if c.store == nil {
		c.store = groupstore.New()
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the ID of the current or most recent scan.
func (c *Coordinator) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Store exposes the result store.
func (c *Coordinator) Store() *groupstore.Store {
	return c.store
}

// Stop cancels the in-flight scan. It reports whether anything was stopped;
// calling it with no scan running is a no-op.
func (c *Coordinator) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.InFlight() {
		return false
	}
	if !c.stopped.CompareAndSwap(false, true) {
		return true
	}
	c.logger.Info("scan stop requested",
		logging.String(logging.FieldSessionID, c.sessionID),
		logging.String(logging.FieldEventType, "scan_stop_requested"),
		logging.String("state", string(c.state)),
	)
	if c.cancel != nil {
		c.cancel()
	}
	if c.runner != nil {
		c.runner.Cancel()
	}
	return true
}

// Scan runs one complete scan. Progress chunks are raw engine stdout in
// arrival order; none are delivered after Stop. On success the store holds
// the new result; on failure or cancellation it is left untouched.
func (c *Coordinator) Scan(ctx context.Context, opts ScanOptions, onProgress func(string)) (scanresult.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.state.InFlight() {
		state := c.state
		c.mu.Unlock()
		return scanresult.Result{}, services.Wrap(services.ErrScanAlreadyInProgress, "session", "scan",
			fmt.Sprintf("a scan is %s", state), nil)
	}
	if err := opts.Validate(); err != nil {
		c.mu.Unlock()
		return scanresult.Result{}, err
	}
	sessionID := c.newID()
	scanCtx, cancel := context.WithCancel(ctx)
	c.sessionID = sessionID
	c.cancel = cancel
	c.runner = nil
	c.stopped.Store(false)
	c.state = StateLocating
	c.mu.Unlock()
	defer cancel()

	scanCtx = services.WithSessionID(scanCtx, sessionID)
	scanCtx = services.WithDirectory(scanCtx, opts.Directory)
	logger := logging.WithContext(scanCtx, c.logger)
	started := time.Now()

	record := settings.ScanRecord{
		SessionID:      sessionID,
		Directory:      opts.Directory,
		MinSize:        opts.MinSize,
		FollowSymlinks: opts.FollowSymlinks,
		State:          string(StateLocating),
		StartedAt:      started,
	}
	if c.history != nil {
		if err := c.history.BeginScan(scanCtx, record); err != nil {
			logging.WarnWithContext(logger, "scan history insert failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this scan will be missing from history"),
			)
		}
	}
	logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_started"),
		logging.Int64("min_size", opts.MinSize),
		logging.Bool("follow_symlinks", opts.FollowSymlinks),
		logging.String("mode", string(c.mode)),
	)

	result, err := c.run(scanCtx, logger, opts, onProgress)

	final := StateCompleted
	switch {
	case err == nil:
	case errors.Is(err, services.ErrCancelled):
		final = StateCancelled
	default:
		final = StateFailed
	}

	c.mu.Lock()
	if err == nil && c.stopped.Load() {
		final = StateCancelled
		err = services.Wrap(services.ErrCancelled, "session", "scan", "stopped before results were committed", nil)
	}
	if final == StateCompleted {
		c.store.Load(result)
	}
	c.state = final
	c.runner = nil
	c.cancel = nil
	c.mu.Unlock()

	elapsed := time.Since(started)
	record.State = string(final)
	if final == StateCompleted {
		record.Format = string(result.Format)
		record.Groups = result.GroupCount()
		record.Duplicates = result.TotalDuplicates()
		if total, ok := result.TotalFiles(); ok {
			v := int64(total)
			record.TotalFiles = &v
		}
		logger.Info("scan completed",
			logging.String(logging.FieldEventType, "scan_completed"),
			logging.String("format", string(result.Format)),
			logging.Int("groups", result.GroupCount()),
			logging.Int("duplicates", result.TotalDuplicates()),
			logging.Duration("elapsed", elapsed),
		)
	} else {
		record.ErrorKind = services.Kind(err)
		record.ErrorMessage = err.Error()
		if final == StateCancelled {
			logger.Info("scan cancelled",
				logging.String(logging.FieldEventType, "scan_cancelled"),
				logging.Duration("elapsed", elapsed),
			)
		} else {
			logging.ErrorWithContext(logger, "scan failed", "scan_failed",
				logging.Error(err),
				logging.String("error_kind", record.ErrorKind),
				logging.Duration("elapsed", elapsed),
			)
		}
	}
	if c.history != nil {
		if herr := c.history.FinishScan(context.WithoutCancel(scanCtx), record); herr != nil {
			logging.WarnWithContext(logger, "scan history update failed", "history_write_failed",
				logging.Error(herr),
				logging.String(logging.FieldImpact, "history shows this scan as unfinished"),
			)
		}
	}

	if err != nil {
		return scanresult.Result{}, err
	}
	return result.Clone(), nil
}

func (c *Coordinator) run(ctx context.Context, logger *slog.Logger, opts ScanOptions, onProgress func(string)) (scanresult.Result, error) {
	binary, needsBuild, err := c.locator.Locate(c.mode)
	if err != nil {
		return scanresult.Result{}, err
	}
	if needsBuild {
		if !c.transition(StateBuilding) {
			return scanresult.Result{}, c.cancelledErr("build")
		}
		logger.Info("engine missing; building", logging.String(logging.FieldEventType, "scan_engine_build"))
		binary, err = c.locator.Build(ctx)
		if err != nil {
			if c.stopped.Load() {
				return scanresult.Result{}, c.cancelledErr("build")
			}
			return scanresult.Result{}, err
		}
		if !c.transition(StateLocating) {
			return scanresult.Result{}, c.cancelledErr("locate")
		}
	}

	runner := c.newRunner()
	c.mu.Lock()
	if c.stopped.Load() {
		c.mu.Unlock()
		return scanresult.Result{}, c.cancelledErr("run")
	}
	c.runner = runner
	c.state = StateRunning
	c.mu.Unlock()

	args := supervisor.Args(supervisor.ScanArgs{
		Directory:      opts.Directory,
		MinSize:        opts.MinSize,
		FollowSymlinks: opts.FollowSymlinks,
	})
	inv, err := runner.Run(ctx, binary, args, func(chunk string) {
		if c.stopped.Load() || onProgress == nil {
			return
		}
		onProgress(chunk)
	})
	if err != nil {
		if c.stopped.Load() && !errors.Is(err, services.ErrCancelled) {
			return scanresult.Result{}, c.cancelledErr("run")
		}
		return scanresult.Result{}, err
	}
	if c.stopped.Load() {
		return scanresult.Result{}, c.cancelledErr("run")
	}
	if inv.ExitCode != 0 {
		return scanresult.Result{}, scanresult.EngineFailure(inv.ExitCode, inv.Stderr)
	}

	if !c.transition(StateParsing) {
		return scanresult.Result{}, c.cancelledErr("parse")
	}
	return scanresult.Parse(inv.Stdout, inv.ExitCode, logger)
}

// transition moves to next unless a stop was requested.
func (c *Coordinator) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped.Load() {
		return false
	}
	c.state = next
	return true
}

func (c *Coordinator) cancelledErr(stage string) error {
	return services.Wrap(services.ErrCancelled, "session", stage, "scan stopped", nil)
}
