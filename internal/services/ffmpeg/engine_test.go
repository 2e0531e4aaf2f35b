package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"squeeze/internal/backend"
)

func stubCommandContext(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func readyEngine(t *testing.T) *Engine {
	t.Helper()
	stubCommandContext(t, "success", nil)
	engine := New(t.TempDir())
	// Resolve against something guaranteed to exist; the stub intercepts
	// the actual invocation.
	engine.binary = os.Args[0]
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return engine
}

func TestWithBinaryOverride(t *testing.T) {
	engine := New(t.TempDir(), WithBinary("/opt/ffmpeg"))
	if engine.binary != "/opt/ffmpeg" {
		t.Fatalf("expected binary override to be applied, got %q", engine.binary)
	}
}

func TestInitializeMissingBinary(t *testing.T) {
	engine := New(t.TempDir(), WithBinary(filepath.Join(t.TempDir(), "no-such-ffmpeg")))
	err := engine.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var initErr *backend.InitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitializationError, got %T", err)
	}
	if engine.Ready() {
		t.Fatal("engine must not report ready after failed init")
	}
}

func TestBlobRoundTrip(t *testing.T) {
	engine := readyEngine(t)

	if err := engine.WriteInput("clip.mov", []byte("source-bytes")); err != nil {
		t.Fatalf("WriteInput failed: %v", err)
	}
	data, err := engine.ReadOutput("clip.mov")
	if err != nil {
		t.Fatalf("ReadOutput failed: %v", err)
	}
	if string(data) != "source-bytes" {
		t.Fatalf("unexpected blob contents: %q", data)
	}

	engine.Purge("clip.mov")
	if _, err := engine.ReadOutput("clip.mov"); err == nil {
		t.Fatal("expected read of purged blob to fail")
	}

	// Purging an absent name never faults.
	engine.Purge("clip.mov")
	engine.Purge("never-existed.mov")
}

func TestBlobNameValidation(t *testing.T) {
	engine := readyEngine(t)

	for _, name := range []string{"", "  ", "../escape.mov", "a/b.mov", ".."} {
		if err := engine.WriteInput(name, []byte("x")); err == nil {
			t.Errorf("expected rejection for blob name %q", name)
		}
	}
}

func TestRunRequiresInitialize(t *testing.T) {
	engine := New(t.TempDir())
	err := engine.Run(context.Background(), []string{"-i", "clip.mov"}, nil)
	var transcodeErr *backend.TranscodeError
	if !errors.As(err, &transcodeErr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
}

func TestRunForwardsProgress(t *testing.T) {
	var captured []string
	engine := readyEngine(t)
	stubCommandContext(t, "success", &captured)

	var messages []string
	argv := []string{"-i", "clip.mov", "-c:v", "libx264", "compressed_clip.mp4"}
	if err := engine.Run(context.Background(), argv, func(message string) {
		messages = append(messages, message)
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(captured) == 0 {
		t.Fatal("expected argv to be captured")
	}
	if len(messages) == 0 {
		t.Fatal("expected progress messages")
	}
	if messages[len(messages)-1] != "progress=end" {
		t.Fatalf("expected final progress message, got %q", messages[len(messages)-1])
	}
}

func TestRunFailureCarriesDetail(t *testing.T) {
	engine := readyEngine(t)
	stubCommandContext(t, "fail", nil)

	err := engine.Run(context.Background(), []string{"-i", "missing.mov"}, nil)
	var transcodeErr *backend.TranscodeError
	if !errors.As(err, &transcodeErr) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if transcodeErr.Detail == "" {
		t.Fatal("expected failure detail from output tail")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "success":
		fmt.Println("frame=1 fps=0.0 q=28.0")
		fmt.Println("progress=end")
		os.Exit(0)
	case "fail":
		fmt.Println("missing.mov: No such file or directory")
		os.Exit(1)
	}
	os.Exit(0)
}
