package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/ffmpeg"
)

// DefaultTimeout is the hard wall-clock cap on one probe invocation.
// The test capture itself is shorter; the cap covers slow RTMP
// handshakes and forcibly terminates a hung relay.
const DefaultTimeout = 15 * time.Second

// Probe failure modes. Both are retryable; the caller feeds them into
// the fallback cycle.
var (
	ErrProbeTimeout = errors.New("probe timed out")
	ErrProbeFailed  = errors.New("probe failed")
)

// Result holds the quality metrics scraped from one probe run.
// Absent tokens default to zero.
type Result struct {
	Width     int
	Height    int
	FPS       float64
	DupFrames int
}

// Resolution formats the measured resolution as WIDTHxHEIGHT.
func (r Result) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// The relay's diagnostics are free text we do not control. Only these
// three first-match token patterns are consumed; anything else in the
// output is ignored.
var (
	resolutionRe = regexp.MustCompile(`(\d+)x(\d+)`)
	fpsRe        = regexp.MustCompile(`(\d+\.?\d*) fps`)
	dupRe        = regexp.MustCompile(`dup=(\d+)`)
)

// Prober runs bounded test invocations of the external relay against a
// single stream variant and parses its diagnostics.
type Prober struct {
	logger  *slog.Logger
	timeout time.Duration

	// commandFn builds the probe invocation; replaceable in tests.
	commandFn func(cam *camera.Camera, v camera.Variant) string
}

// NewProber creates a prober with the default command builder and timeout.
func NewProber(logger *slog.Logger) *Prober {
	return &Prober{
		logger:  logger,
		timeout: DefaultTimeout,
		commandFn: func(cam *camera.Camera, v camera.Variant) string {
			return ffmpeg.BuildProbeCommand(ffmpeg.StreamURL(cam, v))
		},
	}
}

// Probe runs the relay in test mode against one variant and returns the
// scraped metrics. It fails with zero metrics on non-zero exit or when
// the hard cap kills the process. It binds no device slot and has no
// side effects beyond logging.
func (p *Prober) Probe(ctx context.Context, cam *camera.Camera, v camera.Variant) (Result, error) {
	command := p.commandFn(cam, v)
	args, err := ffmpeg.ParseCommand(command)
	if err != nil || len(args) == 0 {
		return Result{}, fmt.Errorf("build probe command: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var diag bytes.Buffer
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &diag

	runErr := cmd.Run()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		p.logger.Warn("Stream test timed out", "address", cam.Address, "variant", v.Name, "timeout", p.timeout)
		return Result{}, ErrProbeTimeout
	case runErr != nil:
		p.logger.Warn("Stream test failed", "address", cam.Address, "variant", v.Name, "error", runErr)
		return Result{}, fmt.Errorf("%w: %s", ErrProbeFailed, lastLine(diag.Bytes()))
	}

	res := parseDiagnostics(diag.String())
	p.logger.Info("Stream test succeeded",
		"address", cam.Address, "variant", v.Name,
		"resolution", res.Resolution(), "fps", res.FPS, "dup", res.DupFrames)
	return res, nil
}

// parseDiagnostics scrapes the three metric tokens from the relay's
// diagnostic text. Only the first match of each pattern is used.
func parseDiagnostics(diag string) Result {
	var res Result
	if m := resolutionRe.FindStringSubmatch(diag); m != nil {
		res.Width, _ = strconv.Atoi(m[1])
		res.Height, _ = strconv.Atoi(m[2])
	}
	if m := fpsRe.FindStringSubmatch(diag); m != nil {
		res.FPS, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := dupRe.FindStringSubmatch(diag); m != nil {
		res.DupFrames, _ = strconv.Atoi(m[1])
	}
	return res
}

// lastLine extracts the final non-empty diagnostic line for error context.
func lastLine(diag []byte) string {
	lines := bytes.Split(bytes.TrimSpace(diag), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
