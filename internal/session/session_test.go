package session_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dupefinder/internal/deletion"
	"dupefinder/internal/groupstore"
	"dupefinder/internal/locator"
	"dupefinder/internal/scanresult"
	"dupefinder/internal/services"
	"dupefinder/internal/session"
	"dupefinder/internal/settings"
	"dupefinder/internal/supervisor"
)

const scenarioJSON = `{"duplicate_groups":[{"files":["A","B"]}],"total_files":3,"total_duplicates":2}`

type fakeLocator struct {
	path       string
	needsBuild bool
	locateErr  error
	buildErr   error
	buildCalls atomic.Int32
	onBuild    func()
}

func (f *fakeLocator) Locate(locator.Mode) (string, bool, error) {
	if f.locateErr != nil {
		return "", false, f.locateErr
	}
	if f.needsBuild {
		return f.path, true, nil
	}
	return f.path, false, nil
}

func (f *fakeLocator) Build(context.Context) (string, error) {
	f.buildCalls.Add(1)
	if f.onBuild != nil {
		f.onBuild()
	}
	if f.buildErr != nil {
		return "", f.buildErr
	}
	return f.path, nil
}

type fakeRunner struct {
	chunks    []string
	inv       supervisor.Invocation
	err       error
	started   chan struct{}
	release   chan struct{}
	lateChunk string
	cancelled atomic.Bool
	gotArgs   []string
}

func (f *fakeRunner) Run(ctx context.Context, _ string, args []string, onProgress func(string)) (supervisor.Invocation, error) {
	f.gotArgs = args
	for _, c := range f.chunks {
		onProgress(c)
	}
	if f.started != nil {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			if f.lateChunk != "" {
				onProgress(f.lateChunk)
			}
			return supervisor.Invocation{}, services.Wrap(services.ErrCancelled, "fake", "run", "", ctx.Err())
		}
	}
	return f.inv, f.err
}

func (f *fakeRunner) Cancel() { f.cancelled.Store(true) }

type fakeDeleter struct {
	outcome deletion.Outcome
	calls   []string
	during  func()
}

func (f *fakeDeleter) DeleteFile(_ context.Context, path string) deletion.Outcome {
	f.calls = append(f.calls, path)
	if f.during != nil {
		f.during()
	}
	return f.outcome
}

type fakeHistory struct {
	mu       sync.Mutex
	begun    []settings.ScanRecord
	finished []settings.ScanRecord
}

func (f *fakeHistory) BeginScan(_ context.Context, rec settings.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begun = append(f.begun, rec)
	return nil
}

func (f *fakeHistory) FinishScan(_ context.Context, rec settings.ScanRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, rec)
	return nil
}

type harness struct {
	coord   *session.Coordinator
	loc     *fakeLocator
	runner  *fakeRunner
	deleter *fakeDeleter
	history *fakeHistory
	dir     string
}

func newHarness(t *testing.T, runner *fakeRunner) *harness {
	t.Helper()
	h := &harness{
		loc:     &fakeLocator{path: "/opt/engine"},
		runner:  runner,
		deleter: &fakeDeleter{outcome: deletion.Outcome{Success: true}},
		history: &fakeHistory{},
		dir:     t.TempDir(),
	}
	coord, err := session.New(session.Options{
		Locator:   h.loc,
		Mode:      locator.ModeDevelopment,
		NewRunner: func() supervisor.Runner { return h.runner },
		Deleter:   h.deleter,
		History:   h.history,
		NewID:     func() string { return "session-test" },
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	h.coord = coord
	return h
}

func (h *harness) options() session.ScanOptions {
	return session.ScanOptions{Directory: h.dir}
}

func preload(store *groupstore.Store) scanresult.Result {
	prior := scanresult.Result{
		Format: scanresult.FormatStructured,
		Groups: []scanresult.DuplicateGroup{{Files: []string{"/old/1", "/old/2"}}},
	}
	store.Load(prior)
	return store.Snapshot()
}

func TestScanScenarioCompletes(t *testing.T) {
	runner := &fakeRunner{
		chunks: []string{scenarioJSON[:20], scenarioJSON[20:]},
		inv:    supervisor.Invocation{Stdout: scenarioJSON},
	}
	h := newHarness(t, runner)

	var progress []string
	result, err := h.coord.Scan(context.Background(), session.ScanOptions{Directory: h.dir, MinSize: 10, FollowSymlinks: true}, func(chunk string) {
		progress = append(progress, chunk)
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if strings.Join(progress, "") != scenarioJSON {
		t.Fatalf("progress chunks out of order: %q", progress)
	}
	if !reflect.DeepEqual(runner.gotArgs, []string{"--json", "--minsize=10", "--follow-symlinks", h.dir}) {
		t.Fatalf("unexpected engine args: %q", runner.gotArgs)
	}
	if len(result.Groups) != 1 || !reflect.DeepEqual(result.Groups[0].Files, []string{"A", "B"}) {
		t.Fatalf("unexpected groups: %+v", result.Groups)
	}
	if total, _ := result.TotalFiles(); total != 3 || result.TotalDuplicates() != 2 {
		t.Fatalf("unexpected totals: files=%d dup=%d", total, result.TotalDuplicates())
	}
	if h.coord.State() != session.StateCompleted {
		t.Fatalf("expected completed, got %s", h.coord.State())
	}
	if h.coord.Store().Len() != 1 {
		t.Fatal("store should hold the new result")
	}

	outcome, err := h.coord.DeleteMember(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("DeleteMember: %v", err)
	}
	if outcome.Path != "A" || !outcome.GroupRemoved || h.coord.Store().Len() != 0 {
		t.Fatalf("expected the only group removed, got %+v", outcome)
	}

	if len(h.history.begun) != 1 || len(h.history.finished) != 1 {
		t.Fatalf("expected one history record, got %d/%d", len(h.history.begun), len(h.history.finished))
	}
	rec := h.history.finished[0]
	if rec.SessionID != "session-test" || rec.State != "completed" || rec.Groups != 1 || rec.Duplicates != 2 {
		t.Fatalf("unexpected history record: %+v", rec)
	}
	if rec.TotalFiles == nil || *rec.TotalFiles != 3 {
		t.Fatalf("expected total files in history, got %+v", rec.TotalFiles)
	}
}

func TestScanNonZeroExitFailsAndKeepsPriorResults(t *testing.T) {
	runner := &fakeRunner{inv: supervisor.Invocation{Stdout: scenarioJSON, Stderr: "Error scanning directory: denied", ExitCode: 1}}
	h := newHarness(t, runner)
	prior := preload(h.coord.Store())

	_, err := h.coord.Scan(context.Background(), h.options(), nil)
	if !errors.Is(err, services.ErrEngineExecution) {
		t.Fatalf("expected engine execution failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "denied") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	if h.coord.State() != session.StateFailed {
		t.Fatalf("expected failed, got %s", h.coord.State())
	}
	if !reflect.DeepEqual(h.coord.Store().Snapshot(), prior) {
		t.Fatal("failed scan must not touch the store")
	}
	if rec := h.history.finished[0]; rec.State != "failed" || rec.ErrorKind != "engine_execution_failed" {
		t.Fatalf("unexpected history: %+v", rec)
	}
}

func TestScanSpawnAndParseErrorsFail(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		marker error
	}{
		{name: "spawn", runner: &fakeRunner{err: services.Wrap(services.ErrSpawn, "fake", "start", "", errors.New("permission denied"))}, marker: services.ErrSpawn},
		{name: "empty output", runner: &fakeRunner{inv: supervisor.Invocation{Stdout: "  \n"}}, marker: services.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.runner)
			prior := preload(h.coord.Store())
			_, err := h.coord.Scan(context.Background(), h.options(), nil)
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if h.coord.State() != session.StateFailed {
				t.Fatalf("expected failed, got %s", h.coord.State())
			}
			if !reflect.DeepEqual(h.coord.Store().Snapshot(), prior) {
				t.Fatal("store changed after failed scan")
			}
		})
	}
}

func TestScanBuildsWhenEngineMissing(t *testing.T) {
	h := newHarness(t, &fakeRunner{inv: supervisor.Invocation{Stdout: scenarioJSON}})
	h.loc.needsBuild = true
	var stateDuringBuild session.State
	h.loc.onBuild = func() { stateDuringBuild = h.coord.State() }

	if _, err := h.coord.Scan(context.Background(), h.options(), nil); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if h.loc.buildCalls.Load() != 1 {
		t.Fatalf("expected one build, got %d", h.loc.buildCalls.Load())
	}
	if stateDuringBuild != session.StateBuilding {
		t.Fatalf("expected building state during build, got %s", stateDuringBuild)
	}
}

func TestScanBuildFailure(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	h.loc.needsBuild = true
	h.loc.buildErr = services.Wrap(services.ErrBuildFailed, "locator", "build", "compile error", nil)
	prior := preload(h.coord.Store())

	_, err := h.coord.Scan(context.Background(), h.options(), nil)
	if !errors.Is(err, services.ErrBuildFailed) {
		t.Fatalf("expected build failure, got %v", err)
	}
	if h.coord.State() != session.StateFailed || h.loc.buildCalls.Load() != 1 {
		t.Fatalf("unexpected state %s after %d builds", h.coord.State(), h.loc.buildCalls.Load())
	}
	if !reflect.DeepEqual(h.coord.Store().Snapshot(), prior) {
		t.Fatal("store changed after build failure")
	}
}

func TestScanRejectsConcurrentRequestAndStops(t *testing.T) {
	runner := &fakeRunner{
		chunks:    []string{"first"},
		started:   make(chan struct{}),
		release:   make(chan struct{}),
		lateChunk: "late",
		inv:       supervisor.Invocation{Stdout: scenarioJSON},
	}
	h := newHarness(t, runner)
	prior := preload(h.coord.Store())

	var mu sync.Mutex
	var progress []string
	done := make(chan error, 1)
	go func() {
		_, err := h.coord.Scan(context.Background(), h.options(), func(chunk string) {
			mu.Lock()
			defer mu.Unlock()
			progress = append(progress, chunk)
		})
		done <- err
	}()

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("scan never started")
	}
	if h.coord.State() != session.StateRunning {
		t.Fatalf("expected running, got %s", h.coord.State())
	}

	if _, err := h.coord.Scan(context.Background(), h.options(), nil); !errors.Is(err, services.ErrScanAlreadyInProgress) {
		t.Fatalf("expected ScanAlreadyInProgress, got %v", err)
	}
	if h.coord.State() != session.StateRunning {
		t.Fatal("rejected request must not change state")
	}

	if !h.coord.Stop() {
		t.Fatal("expected Stop to report a running scan")
	}
	h.coord.Stop()

	select {
	case err := <-done:
		if !errors.Is(err, services.ErrCancelled) {
			t.Fatalf("expected cancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not finish after Stop")
	}
	if !runner.cancelled.Load() {
		t.Fatal("expected runner to be cancelled")
	}
	if h.coord.State() != session.StateCancelled {
		t.Fatalf("expected cancelled, got %s", h.coord.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(progress, []string{"first"}) {
		t.Fatalf("progress after stop: %q", progress)
	}
	if !reflect.DeepEqual(h.coord.Store().Snapshot(), prior) {
		t.Fatal("cancelled scan must not mutate the store")
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	if h.coord.Stop() {
		t.Fatal("Stop on idle coordinator should report false")
	}
	if h.coord.State() != session.StateIdle {
		t.Fatalf("expected idle, got %s", h.coord.State())
	}
}

func TestScanValidatesOptions(t *testing.T) {
	h := newHarness(t, &fakeRunner{inv: supervisor.Invocation{Stdout: scenarioJSON}})
	file := filepath.Join(h.dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []session.ScanOptions{
		{},
		{Directory: "relative/dir"},
		{Directory: filepath.Join(h.dir, "missing")},
		{Directory: file},
		{Directory: h.dir, MinSize: -1},
	}
	for _, opts := range cases {
		if _, err := h.coord.Scan(context.Background(), opts, nil); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Scan(%+v) expected validation error, got %v", opts, err)
		}
		if h.coord.State() != session.StateIdle {
			t.Fatalf("validation failure changed state to %s", h.coord.State())
		}
	}
	if len(h.history.begun) != 0 {
		t.Fatal("invalid requests must not be recorded")
	}
}

func TestRescanAfterTerminalState(t *testing.T) {
	runner := &fakeRunner{inv: supervisor.Invocation{Stdout: "Duplicates:/x|/y\n"}}
	h := newHarness(t, runner)
	for i := 0; i < 2; i++ {
		result, err := h.coord.Scan(context.Background(), h.options(), nil)
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
		if result.Format != scanresult.FormatLegacy || result.Counts != nil {
			t.Fatalf("expected legacy result without counts, got %+v", result)
		}
	}
}

func TestDeleteMemberFailureLeavesStore(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	prior := preload(h.coord.Store())
	h.deleter.outcome = deletion.Outcome{Error: "permission denied"}

	_, err := h.coord.DeleteMember(context.Background(), 0, 1)
	if !errors.Is(err, services.ErrDeletionFailed) || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected deletion failure, got %v", err)
	}
	if !reflect.DeepEqual(h.coord.Store().Snapshot(), prior) {
		t.Fatal("store changed after failed deletion")
	}
	if !reflect.DeepEqual(h.deleter.calls, []string{"/old/2"}) {
		t.Fatalf("unexpected deleter calls: %q", h.deleter.calls)
	}
}

func TestDeleteMemberOutOfRange(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	preload(h.coord.Store())

	if _, err := h.coord.DeleteMember(context.Background(), 4, 0); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected index error, got %v", err)
	}
	if len(h.deleter.calls) != 0 {
		t.Fatal("deleter must not be called for an invalid target")
	}
}

func TestDeleteMemberRemovesAddressedOccurrence(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	h.coord.Store().Load(scanresult.Result{
		Format: scanresult.FormatStructured,
		Groups: []scanresult.DuplicateGroup{
			{Files: []string{"/x", "/y", "/z"}},
			{Files: []string{"/p", "/x", "/q"}},
		},
	})

	outcome, err := h.coord.DeleteMember(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("DeleteMember returned error: %v", err)
	}
	if outcome.Path != "/x" || outcome.GroupRemoved || outcome.RemainingGroups != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	var got [][]string
	for _, g := range h.coord.Store().Snapshot().Groups {
		got = append(got, g.Files)
	}
	want := [][]string{{"/x", "/y", "/z"}, {"/p", "/q"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("groups = %q, want %q", got, want)
	}
}

func TestDeleteMemberStoreReplacedDuringDeletion(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	preload(h.coord.Store())
	replacement := scanresult.Result{
		Format: scanresult.FormatStructured,
		Groups: []scanresult.DuplicateGroup{{Files: []string{"/new/1", "/new/2"}}},
	}
	h.deleter.during = func() { h.coord.Store().Load(replacement) }

	outcome, err := h.coord.DeleteMember(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("DeleteMember returned error: %v", err)
	}
	if outcome.Path != "/old/2" || outcome.RemainingGroups != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if got := h.coord.Store().Snapshot().Groups; !reflect.DeepEqual(got, replacement.Groups) {
		t.Fatalf("newer results were modified: %+v", got)
	}
}

func TestDeleteFileRequiresKnownPath(t *testing.T) {
	h := newHarness(t, &fakeRunner{})
	preload(h.coord.Store())

	if _, err := h.coord.DeleteFile(context.Background(), "/etc/passwd"); !errors.Is(err, services.ErrIndexOutOfRange) {
		t.Fatalf("expected index error for unknown path, got %v", err)
	}
	if len(h.deleter.calls) != 0 {
		t.Fatal("unknown paths must never reach the deleter")
	}

	outcome, err := h.coord.DeleteFile(context.Background(), "/old/1")
	if err != nil || !outcome.GroupRemoved {
		t.Fatalf("DeleteFile = %+v, %v", outcome, err)
	}
}

func TestScanWithRealSupervisorAndEngineStub(t *testing.T) {
	resources := t.TempDir()
	engine := filepath.Join(resources, "bin", "dupefinder-engine")
	if err := os.MkdirAll(filepath.Dir(engine), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	script := "#!/bin/sh\nprintf '%s\\n' '" + scenarioJSON + "'\n"
	if err := os.WriteFile(engine, []byte(script), 0o755); err != nil {
		t.Fatalf("write engine: %v", err)
	}

	loc := locator.New(locator.Options{Name: "dupefinder-engine", ResourcesDir: resources})
	coord, err := session.New(session.Options{
		Locator: loc,
		Mode:    locator.ModePackaged,
		Deleter: deletion.NewFileDeleter(nil),
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	var progress strings.Builder
	result, err := coord.Scan(context.Background(), session.ScanOptions{Directory: t.TempDir()}, func(chunk string) {
		progress.WriteString(chunk)
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if strings.TrimSpace(progress.String()) != scenarioJSON {
		t.Fatalf("unexpected progress: %q", progress.String())
	}
	if result.GroupCount() != 1 || coord.SessionID() == "" {
		t.Fatalf("unexpected result %+v (session %q)", result, coord.SessionID())
	}
}
