package sequencer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"squeeze/internal/backend"
	"squeeze/internal/config"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
	"squeeze/internal/testsupport"
)

// fakeEngine implements backend.Engine with in-memory blob storage so tests
// can observe run order, purges, and failure handling.
type fakeEngine struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	purged   []string
	runOrder []string
	failures map[string]string

	allowInit  chan struct{}
	runStarted chan string
	holdRun    chan struct{}
	blockRun   bool
	payload    []byte
}

func newFakeEngine() *fakeEngine {
	allow := make(chan struct{})
	close(allow)
	return &fakeEngine{
		blobs:      make(map[string][]byte),
		failures:   make(map[string]string),
		allowInit:  allow,
		runStarted: make(chan string, 16),
		payload:    []byte("encoded-bytes"),
	}
}

func (e *fakeEngine) Initialize(ctx context.Context) error {
	select {
	case <-e.allowInit:
		return nil
	default:
		return &backend.InitializationError{Err: errors.New("backend unavailable")}
	}
}

func (e *fakeEngine) WriteInput(name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blobs[name] = append([]byte(nil), data...)
	return nil
}

func (e *fakeEngine) Purge(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.purged = append(e.purged, name)
	delete(e.blobs, name)
}

func (e *fakeEngine) Run(ctx context.Context, argv []string, onProgress func(string)) error {
	input, output := argvNames(argv)
	e.mu.Lock()
	e.runOrder = append(e.runOrder, input)
	block := e.blockRun
	hold := e.holdRun
	detail, failed := e.failures[input]
	e.mu.Unlock()

	select {
	case e.runStarted <- input:
	default:
	}

	if block {
		<-ctx.Done()
		return &backend.TranscodeError{Detail: "signal: killed", Err: ctx.Err()}
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return &backend.TranscodeError{Detail: "signal: killed", Err: ctx.Err()}
		}
	}
	if onProgress != nil {
		onProgress("frame=1")
		onProgress("progress=end")
	}
	if failed {
		return &backend.TranscodeError{Detail: detail}
	}

	e.mu.Lock()
	e.blobs[output] = append([]byte(nil), e.payload...)
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) ReadOutput(name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.blobs[name]
	if !ok {
		return nil, &backend.StorageError{Name: name, Op: "read", Err: os.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (e *fakeEngine) purgeCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, purged := range e.purged {
		if purged == name {
			count++
		}
	}
	return count
}

// argvNames extracts the input and output blob names from an ffmpeg-style
// argument vector.
func argvNames(argv []string) (input, output string) {
	for i, arg := range argv {
		if arg == "-i" && i+1 < len(argv) {
			input = argv[i+1]
		}
	}
	if len(argv) > 0 {
		output = argv[len(argv)-1]
	}
	return input, output
}

func newManager(t *testing.T, cfg *config.Config, store *queue.Store, engine backend.Engine) (*sequencer.Manager, *preview.Ledger) {
	t.Helper()

	ledger, err := preview.NewLedger(cfg.Paths.PreviewDir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	mgr := sequencer.NewManager(cfg, store, ledger, engine, logging.NewNop(),
		sequencer.WithIntervals(10*time.Millisecond, 10*time.Millisecond))
	return mgr, ledger
}

func stageJob(t *testing.T, cfg *config.Config, store *queue.Store, sourceName string) *queue.Job {
	t.Helper()

	if err := os.MkdirAll(cfg.Paths.StagingDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(cfg.Paths.StagingDir, sourceName)
	testsupport.WriteFile(t, path, 64)

	job, err := store.NewJob(context.Background(), &queue.Job{
		SourceName:      sourceName,
		SourcePath:      path,
		SourceSizeBytes: 64,
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	return job
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()

	deadline := time.After(10 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job %d to reach %s", id, want)
		default:
		}
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManagerProcessesJobsInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	mgr, ledger := newManager(t, cfg, store, engine)

	first := stageJob(t, cfg, store, "alpha.mov")
	second := stageJob(t, cfg, store, "beta.mov")
	third := stageJob(t, cfg, store, "gamma.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	for _, job := range []*queue.Job{first, second, third} {
		done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
		if done.ResultHandle == "" {
			t.Fatalf("job %d completed without a result handle", job.ID)
		}
		if _, ok := ledger.Path(done.ResultHandle); !ok {
			t.Fatalf("job %d result handle %q not resolvable", job.ID, done.ResultHandle)
		}
		if done.ResultSizeBytes != int64(len(engine.payload)) {
			t.Fatalf("job %d result size = %d, want %d", job.ID, done.ResultSizeBytes, len(engine.payload))
		}
		if done.ResultSizeLabel != "13.00 Bytes" {
			t.Fatalf("job %d result label = %q", job.ID, done.ResultSizeLabel)
		}
	}

	engine.mu.Lock()
	order := append([]string(nil), engine.runOrder...)
	engine.mu.Unlock()
	want := []string{"alpha.mov", "beta.mov", "gamma.mov"}
	if len(order) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(order))
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("run %d = %q, want %q", i, order[i], name)
		}
	}

	// Both derived names are purged before and after every run.
	if got := engine.purgeCount("alpha.mov"); got < 2 {
		t.Fatalf("expected input purged before and after, got %d purges", got)
	}
	if got := engine.purgeCount("compressed_alpha.mp4"); got < 2 {
		t.Fatalf("expected output purged before and after, got %d purges", got)
	}
	if mgr.ActiveCount() != 0 {
		t.Fatalf("expected empty occupant slot, got %d", mgr.ActiveCount())
	}

	// Completed jobs no longer need their intake copies.
	for _, job := range []*queue.Job{first, second, third} {
		if _, err := os.Stat(job.SourcePath); !os.IsNotExist(err) {
			t.Fatalf("expected staged source %s removed after completion, stat err = %v", job.SourcePath, err)
		}
	}
}

func TestManagerIsolatesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	engine.failures["bad.mov"] = "codec parameters invalid"
	mgr, ledger := newManager(t, cfg, store, engine)

	bad := stageJob(t, cfg, store, "bad.mov")
	good := stageJob(t, cfg, store, "good.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	failed := waitForStatus(t, store, bad.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" || failed.ResultHandle != "" || failed.ResultSizeLabel != "" {
		t.Fatalf("unexpected failed job state: %+v", failed)
	}

	done := waitForStatus(t, store, good.ID, queue.StatusCompleted)
	if done.ResultHandle == "" {
		t.Fatal("expected surviving job to carry a result handle")
	}
	if ledger.Outstanding() != 1 {
		t.Fatalf("expected one outstanding handle, got %d", ledger.Outstanding())
	}

	// Failed jobs keep their staged source so a retry can re-read it.
	if _, err := os.Stat(bad.SourcePath); err != nil {
		t.Fatalf("expected failed job to keep staged source: %v", err)
	}
	if _, err := os.Stat(good.SourcePath); !os.IsNotExist(err) {
		t.Fatalf("expected completed job staged source removed, stat err = %v", err)
	}
}

func TestManagerReleasesResultHandleWhenJobCleared(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	engine.holdRun = make(chan struct{})
	mgr, ledger := newManager(t, cfg, store, engine)

	stageJob(t, cfg, store, "cleared.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	<-engine.runStarted
	if _, err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	close(engine.holdRun)

	// Completion finds the row gone; the freshly allocated result preview
	// must be dropped rather than linger until shutdown.
	deadline := time.After(10 * time.Second)
	for mgr.ActiveCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for occupant slot to clear")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	if got := ledger.Outstanding(); got != 0 {
		t.Fatalf("expected no outstanding handles after cleared job completed, got %d", got)
	}
}

func TestManagerWaitsForBackendReadiness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	engine.allowInit = make(chan struct{})
	mgr, _ := newManager(t, cfg, store, engine)

	job := stageJob(t, cfg, store, "waiting.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	time.Sleep(100 * time.Millisecond)
	if mgr.Ready() {
		t.Fatal("expected manager not ready while initialization fails")
	}
	pending, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if pending.Status != queue.StatusPending {
		t.Fatalf("expected job pending before readiness, got %s", pending.Status)
	}

	close(engine.allowInit)
	waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if !mgr.Ready() {
		t.Fatal("expected manager ready after initialization")
	}
}

func TestManagerStopFailsInFlightJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	engine.blockRun = true
	mgr, _ := newManager(t, cfg, store, engine)

	job := stageJob(t, cfg, store, "inflight.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-engine.runStarted:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for run to start")
	}
	mgr.Stop()

	stopped, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stopped.Status != queue.StatusFailed {
		t.Fatalf("expected in-flight job failed after stop, got %s", stopped.Status)
	}
	if stopped.ErrorMessage != queue.StopReason {
		t.Fatalf("expected stop reason %q, got %q", queue.StopReason, stopped.ErrorMessage)
	}
	if mgr.ActiveCount() != 0 {
		t.Fatalf("expected released occupant slot, got %d", mgr.ActiveCount())
	}
	if got := engine.purgeCount("inflight.mov"); got < 2 {
		t.Fatalf("expected input purged after stop, got %d purges", got)
	}
}

func TestManagerPublishesSequencedEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	engine := newFakeEngine()
	mgr, _ := newManager(t, cfg, store, engine)

	job := stageJob(t, cfg, store, "clip.mov")

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, job.ID, queue.StatusCompleted)

	events := mgr.Events().Since(0)
	if len(events) < 4 {
		t.Fatalf("expected started, progress, and completed events, got %d", len(events))
	}
	if events[0].Type != sequencer.EventTypeStarted || events[0].JobID != job.ID {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Type != sequencer.EventTypeCompleted || last.Status != queue.StatusCompleted {
		t.Fatalf("unexpected final event: %+v", last)
	}
	progress := 0
	for i, event := range events {
		if i > 0 && event.Seq <= events[i-1].Seq {
			t.Fatal("expected strictly increasing sequence numbers")
		}
		if event.Type == sequencer.EventTypeProgress {
			progress++
		}
	}
	if progress != 2 {
		t.Fatalf("expected 2 progress events, got %d", progress)
	}
}
