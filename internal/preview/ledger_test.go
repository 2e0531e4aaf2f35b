package preview_test

import (
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/preview"
	"squeeze/internal/testsupport"
)

func newLedger(t *testing.T) *preview.Ledger {
	t.Helper()
	ledger, err := preview.NewLedger(filepath.Join(t.TempDir(), "previews"), nil)
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	return ledger
}

func TestAllocateCopiesSource(t *testing.T) {
	ledger := newLedger(t)
	src := filepath.Join(t.TempDir(), "clip.mov")
	testsupport.WriteFile(t, src, 1024)

	handle, err := ledger.Allocate(src)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if handle.Token == "" {
		t.Fatal("expected non-empty token")
	}
	if filepath.Ext(handle.Path) != ".mov" {
		t.Fatalf("expected extension preserved, got %q", handle.Path)
	}

	info, err := os.Stat(handle.Path)
	if err != nil {
		t.Fatalf("stat preview copy: %v", err)
	}
	if info.Size() != 1024 {
		t.Fatalf("unexpected preview size: %d", info.Size())
	}

	path, ok := ledger.Path(handle.Token)
	if !ok || path != handle.Path {
		t.Fatalf("Path lookup mismatch: %q %v", path, ok)
	}
}

func TestAllocateBytes(t *testing.T) {
	ledger := newLedger(t)

	handle, err := ledger.AllocateBytes("compressed_clip.mp4", []byte("payload"))
	if err != nil {
		t.Fatalf("AllocateBytes failed: %v", err)
	}
	if filepath.Ext(handle.Path) != ".mp4" {
		t.Fatalf("expected .mp4 extension, got %q", handle.Path)
	}
	data, err := os.ReadFile(handle.Path)
	if err != nil || string(data) != "payload" {
		t.Fatalf("unexpected artifact contents: %q %v", data, err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	ledger := newLedger(t)
	src := filepath.Join(t.TempDir(), "clip.mov")
	testsupport.WriteFile(t, src, 64)

	handle, err := ledger.Allocate(src)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	ledger.Release(handle.Token)
	if _, err := os.Stat(handle.Path); !os.IsNotExist(err) {
		t.Fatalf("expected artifact removed, got %v", err)
	}

	// Double release and unknown tokens are no-ops.
	ledger.Release(handle.Token)
	ledger.Release("no-such-token")
	ledger.Release("")

	// Subsequent allocations are unaffected.
	other, err := ledger.Allocate(src)
	if err != nil {
		t.Fatalf("Allocate after release failed: %v", err)
	}
	if _, err := os.Stat(other.Path); err != nil {
		t.Fatalf("expected live artifact: %v", err)
	}
}

func TestReleaseAll(t *testing.T) {
	ledger := newLedger(t)
	src := filepath.Join(t.TempDir(), "clip.mov")
	testsupport.WriteFile(t, src, 64)

	for i := 0; i < 3; i++ {
		if _, err := ledger.Allocate(src); err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
	}
	if ledger.Outstanding() != 3 {
		t.Fatalf("expected three handles, got %d", ledger.Outstanding())
	}

	ledger.ReleaseAll()
	if ledger.Outstanding() != 0 {
		t.Fatalf("expected no handles after ReleaseAll, got %d", ledger.Outstanding())
	}
}
