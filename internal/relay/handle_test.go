package relay

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCamera() *camera.Camera {
	return &camera.Camera{Slot: 0, Address: "10.0.0.10", Username: "admin", Password: "pw"}
}

// testLauncher returns a launcher whose relay command is replaced by a
// shell snippet and whose timeouts are short enough for tests.
func testLauncher(t *testing.T, command string) *Launcher {
	t.Helper()
	l := NewLauncher(t.TempDir(), testLogger(), testLogger())
	l.gracefulTimeout = 300 * time.Millisecond
	l.killTimeout = 300 * time.Millisecond
	l.commandFn = func(*camera.Camera, camera.Variant, float64, string) string {
		return command
	}
	return l
}

func waitExited(t *testing.T, h *Handle, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if h.Exited() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for relay to exit")
}

func TestLaunchAndExitDetection(t *testing.T) {
	l := testLauncher(t, `sh -c "exit 3"`)

	h, err := l.Launch(testCamera(), camera.Variants[0], 30, "/dev/null")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	waitExited(t, h, 2*time.Second)
	if code := h.ExitCode(); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	// Exited stays sticky.
	if !h.Exited() {
		t.Error("Exited must keep reporting true")
	}
}

func TestGracefulStop(t *testing.T) {
	l := testLauncher(t, `sh -c "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"`)

	h, err := l.Launch(testCamera(), camera.Variants[0], 30, "/dev/null")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if code := h.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestForceKillOnStopTimeout(t *testing.T) {
	l := testLauncher(t, `sh -c "trap '' INT; sleep 10"`)

	h, err := l.Launch(testCamera(), camera.Variants[0], 30, "/dev/null")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	// Killed processes report 137 (128 + 9).
	if code := h.Stop(); code != 137 {
		t.Errorf("expected exit code 137, got %d", code)
	}
}

func TestStopAfterExit(t *testing.T) {
	l := testLauncher(t, `sh -c "exit 0"`)

	h, err := l.Launch(testCamera(), camera.Variants[0], 30, "/dev/null")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}

	waitExited(t, h, 2*time.Second)
	if code := h.Stop(); code != 0 {
		t.Errorf("Stop after exit should return the recorded code, got %d", code)
	}
}

func TestLaunchSpawnFailure(t *testing.T) {
	l := testLauncher(t, "/nonexistent/binary --flag")

	if _, err := l.Launch(testCamera(), camera.Variants[0], 30, "/dev/null"); err == nil {
		t.Fatal("expected spawn error")
	}
}

func TestOutputGoesToSink(t *testing.T) {
	dir := t.TempDir()
	l := NewLauncher(dir, testLogger(), testLogger())
	l.gracefulTimeout = 300 * time.Millisecond
	l.killTimeout = 300 * time.Millisecond
	l.commandFn = func(*camera.Camera, camera.Variant, float64, string) string {
		return `sh -c "echo hello; echo oops >&2"`
	}

	cam := testCamera()
	cam.Slot = 7
	h, err := l.Launch(cam, camera.Variants[0], 30, "/dev/null")
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	waitExited(t, h, 2*time.Second)

	data, err := os.ReadFile(filepath.Join(dir, "camera7.log"))
	if err != nil {
		t.Fatalf("read sink: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "hello") || !strings.Contains(out, "oops") {
		t.Errorf("sink missing output lines: %q", out)
	}
}
