// Package relay starts and stops the persistent external relay process
// that feeds a camera's stream into its capture slot. The relay's media
// handling is opaque; this package only manages its lifecycle and
// routes its diagnostic output.
package relay

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/ffmpeg"
)

const (
	defaultGracefulTimeout = 5 * time.Second
	defaultKillTimeout     = 5 * time.Second
)

// Launcher starts relay processes bound to capture slots. Diagnostic
// output goes to a per-camera append-only log file and, level-parsed,
// to the process logger.
type Launcher struct {
	logger          *slog.Logger
	processLogger   *slog.Logger
	logDir          string
	gracefulTimeout time.Duration
	killTimeout     time.Duration

	// commandFn builds the relay invocation; replaceable in tests.
	commandFn func(cam *camera.Camera, v camera.Variant, fps float64, devicePath string) string
}

// NewLauncher creates a launcher writing per-camera sinks under logDir.
// processLogger receives the relay's own output lines (module "ffmpeg").
func NewLauncher(logDir string, logger, processLogger *slog.Logger) *Launcher {
	return &Launcher{
		logger:          logger,
		processLogger:   processLogger,
		logDir:          logDir,
		gracefulTimeout: defaultGracefulTimeout,
		killTimeout:     defaultKillTimeout,
		commandFn: func(cam *camera.Camera, v camera.Variant, fps float64, devicePath string) string {
			return ffmpeg.BuildRelayCommand(ffmpeg.StreamURL(cam, v), fps, devicePath)
		},
	}
}

// Launch starts the persistent relay for one camera and returns a live
// handle. A spawn failure (binary absent, permission denied) is returned
// as an error; the caller treats it as a supervision failure for the
// cycle, not a process-fatal condition.
func (l *Launcher) Launch(cam *camera.Camera, v camera.Variant, fps float64, devicePath string) (*Handle, error) {
	command := l.commandFn(cam, v, fps, devicePath)
	args, err := ffmpeg.ParseCommand(command)
	if err != nil || len(args) == 0 {
		return nil, fmt.Errorf("build relay command: %w", err)
	}

	var sink *os.File
	if l.logDir != "" {
		if err := os.MkdirAll(l.logDir, 0o755); err != nil {
			return nil, fmt.Errorf("create relay log dir: %w", err)
		}
		path := filepath.Join(l.logDir, fmt.Sprintf("camera%d.log", cam.Slot))
		sink, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open relay log sink: %w", err)
		}
	}

	h, err := start(args, sink, l.processLogger, l.gracefulTimeout, l.killTimeout)
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, err
	}

	l.logger.Info("Relay started",
		"slot", cam.Slot, "address", cam.Address, "variant", v.Name,
		"device", devicePath, "pid", h.PID())
	return h, nil
}

// stopSignal is the graceful termination request sent before escalating
// to SIGKILL.
var stopSignal = syscall.SIGINT
