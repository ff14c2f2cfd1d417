package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
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

// testProber returns a prober whose command is replaced by a shell snippet.
func testProber(command string, timeout time.Duration) *Prober {
	return &Prober{
		logger:  testLogger(),
		timeout: timeout,
		commandFn: func(*camera.Camera, camera.Variant) string {
			return command
		},
	}
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		diag string
		want Result
	}{
		{
			name: "all tokens present",
			diag: "Stream #0:0: Video: h264, 1920x1080, 30 fps\nframe= 150 dup=3 drop=0",
			want: Result{Width: 1920, Height: 1080, FPS: 30, DupFrames: 3},
		},
		{
			name: "fractional fps",
			diag: "2560x1440, 29.97 fps",
			want: Result{Width: 2560, Height: 1440, FPS: 29.97},
		},
		{
			name: "first match wins",
			diag: "1920x1080, 30 fps\n640x480, 15 fps",
			want: Result{Width: 1920, Height: 1080, FPS: 30},
		},
		{
			name: "missing tokens default to zero",
			diag: "nothing useful here",
			want: Result{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDiagnostics(tt.diag); got != tt.want {
				t.Errorf("parseDiagnostics() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProbeScrapesStderr(t *testing.T) {
	p := testProber(`sh -c 'echo "1280x720, 25 fps" >&2; echo "dup=2" >&2'`, 2*time.Second)

	res, err := p.Probe(context.Background(), testCamera(), camera.Variants[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Result{Width: 1280, Height: 720, FPS: 25, DupFrames: 2}
	if res != want {
		t.Errorf("got %+v, want %+v", res, want)
	}
}

func TestProbeNonZeroExit(t *testing.T) {
	p := testProber(`sh -c 'echo "Connection refused" >&2; exit 1'`, 2*time.Second)

	_, err := p.Probe(context.Background(), testCamera(), camera.Variants[0])
	if !errors.Is(err, ErrProbeFailed) {
		t.Fatalf("expected ErrProbeFailed, got %v", err)
	}
}

func TestProbeTimeout(t *testing.T) {
	p := testProber("sleep 10", 100*time.Millisecond)

	start := time.Now()
	_, err := p.Probe(context.Background(), testCamera(), camera.Variants[0])
	if !errors.Is(err, ErrProbeTimeout) {
		t.Fatalf("expected ErrProbeTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probe outlived its cap: %v", elapsed)
	}
}

func TestProbeRespectsCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	p := testProber("sleep 10", 10*time.Second)
	_, err := p.Probe(ctx, testCamera(), camera.Variants[0])
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
}
