package relay

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/ffmpeg"
)

// Handle is a live relay process. It is replaced, never reused: after
// Exited reports true (or Stop returns) the handle is dead and a new
// one must be obtained from the Launcher. All methods are called from
// the supervisor loop only.
type Handle struct {
	cmd             *exec.Cmd
	logger          *slog.Logger
	done            chan error
	exited          bool
	exitCode        int
	gracefulTimeout time.Duration
	killTimeout     time.Duration
}

// start spawns the relay, wires its output streams, and begins waiting
// for exit in the background.
func start(args []string, sink *os.File, logger *slog.Logger, gracefulTimeout, killTimeout time.Duration) (*Handle, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	h := &Handle{
		cmd:             cmd,
		logger:          logger,
		done:            make(chan error, 1),
		gracefulTimeout: gracefulTimeout,
		killTimeout:     killTimeout,
	}

	outputDone := make(chan struct{}, 2)
	go func() {
		h.streamOutput(stdout, sink)
		outputDone <- struct{}{}
	}()
	go func() {
		h.streamOutput(stderr, sink)
		outputDone <- struct{}{}
	}()

	// Drain both output streams before Wait so the pipes are fully read,
	// then release the sink.
	go func() {
		<-outputDone
		<-outputDone
		err := cmd.Wait()
		if sink != nil {
			sink.Close()
		}
		h.done <- err
	}()

	return h, nil
}

// PID returns the relay's process ID.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Exited performs a non-blocking check for process exit. Once it
// returns true it keeps returning true and ExitCode is valid.
func (h *Handle) Exited() bool {
	if h.exited {
		return true
	}
	select {
	case err := <-h.done:
		h.exited = true
		h.exitCode = exitCodeFromError(err)
		return true
	default:
		return false
	}
}

// ExitCode returns the recorded exit code after Exited reports true.
func (h *Handle) ExitCode() int {
	return h.exitCode
}

// Stop requests graceful termination and waits up to the grace period,
// force-killing on timeout. Returns the exit code. Safe to call after
// the process already exited.
func (h *Handle) Stop() int {
	if h.Exited() {
		return h.exitCode
	}

	if h.cmd.Process != nil {
		if err := h.cmd.Process.Signal(stopSignal); err != nil && !errors.Is(err, os.ErrProcessDone) {
			h.logger.Warn("Failed to signal relay", "pid", h.PID(), "error", err)
		}
	}

	select {
	case err := <-h.done:
		h.exited = true
		h.exitCode = exitCodeFromError(err)
	case <-time.After(h.gracefulTimeout):
		h.logger.Warn("Graceful stop timeout, killing relay", "pid", h.PID(), "timeout", h.gracefulTimeout)
		if h.cmd.Process != nil {
			if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				h.logger.Error("Failed to kill relay", "error", err)
			}
		}
		select {
		case <-h.done:
		case <-time.After(h.killTimeout):
			h.logger.Error("Relay did not exit after kill signal", "pid", h.PID())
		}
		h.exited = true
		h.exitCode = 137
	}
	return h.exitCode
}

// streamOutput copies relay output lines to the per-camera sink and
// logs them at the level parsed from the line.
func (h *Handle) streamOutput(r io.Reader, sink *os.File) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if sink != nil {
			sink.WriteString(line + "\n")
		}

		if h.logger == nil {
			continue
		}
		level, msg := ffmpeg.ParseLogLevel(line)
		switch level {
		case "fatal", "error":
			h.logger.Error(msg)
		case "warning":
			h.logger.Warn(msg)
		case "debug", "trace", "verbose":
			h.logger.Debug(msg)
		default:
			h.logger.Info(msg)
		}
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
