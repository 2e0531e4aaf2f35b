package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"squeeze/internal/fileutil"
	"squeeze/internal/testsupport"
)

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	testsupport.WriteFile(t, path, 4096)

	size, err := fileutil.FileSize(path)
	if err != nil {
		t.Fatalf("FileSize failed: %v", err)
	}
	if size != 4096 {
		t.Fatalf("unexpected size: %d", size)
	}

	if _, err := fileutil.FileSize(dir); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	testsupport.WriteFile(t, src, 64*1024)

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified failed: %v", err)
	}

	srcData, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read src: %v", err)
	}
	dstData, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if len(srcData) != len(dstData) {
		t.Fatalf("size mismatch: %d vs %d", len(srcData), len(dstData))
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := fileutil.CopyFileVerified(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
