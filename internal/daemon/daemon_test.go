package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"squeeze/internal/backend"
	"squeeze/internal/config"
	"squeeze/internal/daemon"
	"squeeze/internal/intake"
	"squeeze/internal/logging"
	"squeeze/internal/preview"
	"squeeze/internal/queue"
	"squeeze/internal/sequencer"
	"squeeze/internal/testsupport"
)

type noopEngine struct{}

func (noopEngine) Initialize(context.Context) error  { return nil }
func (noopEngine) WriteInput(string, []byte) error   { return nil }
func (noopEngine) Purge(string)                      {}
func (noopEngine) ReadOutput(string) ([]byte, error) { return []byte("out"), nil }
func (noopEngine) Run(context.Context, []string, func(string)) error {
	return nil
}

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *preview.Ledger) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	ledger, err := preview.NewLedger(cfg.Paths.PreviewDir, logging.NewNop())
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	in := intake.NewService(cfg, store, ledger, logging.NewNop())
	seq := sequencer.NewManager(cfg, store, ledger, noopEngine{}, logging.NewNop(),
		sequencer.WithIntervals(10*time.Millisecond, 10*time.Millisecond))
	d, err := daemon.New(cfg, store, ledger, in, seq, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, ledger
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected PID in status, got %d", status.PID)
	}

	// Second start should fail while the lock is held.
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonStopReleasesHandles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, ledger := newDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := ledger.AllocateBytes("orphan.mp4", []byte("data")); err != nil {
		t.Fatalf("AllocateBytes failed: %v", err)
	}
	if ledger.Outstanding() != 1 {
		t.Fatalf("expected one outstanding handle, got %d", ledger.Outstanding())
	}

	d.Stop()
	if ledger.Outstanding() != 0 {
		t.Fatalf("expected all handles released on stop, got %d", ledger.Outstanding())
	}
}

func TestDaemonStopFailsStaleActiveRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, cfg)

	// Simulate a row left active by an earlier crash.
	job := testsupport.NewJob(t, store, "stale.mov", 64)
	job.SetActive()
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusFailed || updated.ErrorMessage != queue.StopReason {
		t.Fatalf("expected stale active row failed with stop reason, got %+v", updated)
	}
}

func TestDaemonClearQueueReleasesJobHandles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, ledger := newDaemon(t, cfg)

	ctx := context.Background()
	store := testsupport.MustOpenStore(t, cfg)

	handle, err := ledger.AllocateBytes("result.mp4", []byte("payload"))
	if err != nil {
		t.Fatalf("AllocateBytes failed: %v", err)
	}
	staged := filepath.Join(cfg.Paths.StagingDir, "done.mov")
	testsupport.WriteFile(t, staged, 64)

	job := testsupport.NewJob(t, store, "done.mov", 64)
	job.SourcePath = staged
	job.SetCompleted(7, "7.00 Bytes", handle.Token)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one removed job, got %d", removed)
	}
	if ledger.Outstanding() != 0 {
		t.Fatalf("expected job handles released, got %d outstanding", ledger.Outstanding())
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged source removed by clear, stat err = %v", err)
	}
}

var _ backend.Engine = noopEngine{}
