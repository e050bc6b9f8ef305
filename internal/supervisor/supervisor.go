package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"dupefinder/internal/logging"
	"dupefinder/internal/services"
)

// ErrSupervisorUsed is returned when Run is called a second time.
var ErrSupervisorUsed = errors.New("supervisor already used")

const (
	readBufferSize = 32 * 1024
	waitDelay      = 2 * time.Second
)

// Invocation is the outcome of a process that ran to termination.
type Invocation struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// Runner is the behaviour the scan coordinator needs from a supervisor.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, onProgress func(string)) (Invocation, error)
	Cancel()
}

type streamKind int

const (
	streamStdout streamKind = iota
	streamStderr
)

type chunk struct {
	stream streamKind
	data   []byte
	err    error
	done   bool
}

// Supervisor owns a single engine invocation.
type Supervisor struct {
	logger *slog.Logger

	mu        sync.Mutex
	used      bool
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// New constructs a Supervisor. A nil logger discards output.
func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logging.NewComponentLogger(logger, "supervisor")}
}

// Cancel kills the running process group. It is safe to call at any time and
// more than once; with nothing running it does nothing.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	if s.cancelled.CompareAndSwap(false, true) {
		s.logger.Info("engine cancellation requested", logging.String(logging.FieldEventType, "engine_cancel_requested"))
	}
	s.cancel()
}

// Run starts binary with args and blocks until it terminates. Every stdout
// chunk is passed verbatim to onProgress before Run returns. Any exit code is
// a normal termination; errors are reserved for launch failures and
// cancellation.
func (s *Supervisor) Run(ctx context.Context, binary string, args []string, onProgress func(string)) (Invocation, error) {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return Invocation{}, ErrSupervisorUsed
	}
	s.used = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	logger := logging.WithContext(ctx, s.logger)

	cmd := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Invocation{}, services.Wrap(services.ErrSpawn, "supervisor", "stdout pipe", "", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Invocation{}, services.Wrap(services.ErrSpawn, "supervisor", "stderr pipe", "", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return Invocation{}, services.Wrap(services.ErrCancelled, "supervisor", "start", "cancelled before launch", ctxErr)
		}
		logging.ErrorWithContext(logger, "engine launch failed", "engine_spawn_failed",
			logging.String("binary", binary),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the engine path and its permissions"),
		)
		return Invocation{}, services.Wrap(services.ErrSpawn, "supervisor", "start", binary, err)
	}
	logger.Info("engine started",
		logging.String(logging.FieldEventType, "engine_started"),
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
		logging.Int("pid", cmd.Process.Pid),
	)

	chunks := make(chan chunk, 16)
	go readStream(stdout, streamStdout, chunks)
	go readStream(stderr, streamStderr, chunks)

	var outBuf, errBuf strings.Builder
	sampler := logging.NewProgressSampler(0)
	var readErr error
	for open := 2; open > 0; {
		c := <-chunks
		if c.done {
			open--
			if c.err != nil && readErr == nil {
				readErr = c.err
			}
			continue
		}
		switch c.stream {
		case streamStdout:
			outBuf.Write(c.data)
			if s.cancelled.Load() || runCtx.Err() != nil {
				continue
			}
			if onProgress != nil {
				onProgress(string(c.data))
			}
			if sampler.ShouldLog(int64(outBuf.Len())) {
				logger.Debug("engine output", logging.Int("bytes", outBuf.Len()))
			}
		case streamStderr:
			errBuf.Write(c.data)
		}
	}

	waitErr := cmd.Wait()
	inv := Invocation{
		Stdout:  outBuf.String(),
		Stderr:  errBuf.String(),
		Elapsed: time.Since(started),
	}

	if s.cancelled.Load() || runCtx.Err() != nil {
		inv.ExitCode = -1
		logger.Info("engine cancelled",
			logging.String(logging.FieldEventType, "engine_cancelled"),
			logging.Duration("elapsed", inv.Elapsed),
		)
		cause := context.Cause(runCtx)
		if cause == nil {
			cause = context.Canceled
		}
		return inv, services.Wrap(services.ErrCancelled, "supervisor", "run", "engine terminated", cause)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		inv.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		inv.ExitCode = exitErr.ExitCode()
	default:
		return inv, services.Wrap(services.ErrEngineExecution, "supervisor", "wait", "", waitErr)
	}
	if readErr != nil {
		logging.WarnWithContext(logger, "engine output read interrupted", "engine_read_error",
			logging.Error(readErr),
			logging.String(logging.FieldImpact, "captured output may be incomplete"),
		)
	}

	logger.Info("engine exited",
		logging.String(logging.FieldEventType, "engine_exited"),
		logging.Int("exit_code", inv.ExitCode),
		logging.Int("stdout_bytes", len(inv.Stdout)),
		logging.Int("stderr_bytes", len(inv.Stderr)),
		logging.Duration("elapsed", inv.Elapsed),
	)
	return inv, nil
}

func readStream(r io.Reader, stream streamKind, out chan<- chunk) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			out <- chunk{stream: stream, data: data}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				err = nil
			}
			out <- chunk{stream: stream, done: true, err: err}
			return
		}
	}
}

// String describes the invocation for diagnostics.
func (inv Invocation) String() string {
	return fmt.Sprintf("exit=%d stdout=%dB stderr=%dB elapsed=%s", inv.ExitCode, len(inv.Stdout), len(inv.Stderr), inv.Elapsed)
}
