// Package supervisor owns the camera fleet: it performs the initial
// stream assignment, keeps relay processes bound to capture slots, and
// runs the fallback cycle when a relay dies or a camera misbehaves.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/camera"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/events"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/probe"
	"github.com/aab18011/ffmpeg-v4l2-connector/internal/quality"
)

// Supervision states.
const (
	StateRunning  = "running"
	StateFallback = "fallback_probing"
	StateBackoff  = "backoff"
	StateStopped  = "stopped"
	StateSkipped  = "skipped"
)

// Failure reasons surfaced in the startup summary and state events.
const (
	ReasonUnreachable     = "unreachable"
	ReasonNoUsableVariant = "no usable variant"
	ReasonSpawnFailed     = "spawn failed"
	ReasonRelayExited     = "relay exited"
	ReasonSlotLost        = "capture device lost"
)

// RelayHandle is the supervisor's view of a live relay process.
type RelayHandle interface {
	PID() int
	Exited() bool
	ExitCode() int
	Stop() int
}

// ProbeFunc runs one bounded test capture of a variant.
type ProbeFunc func(ctx context.Context, cam *camera.Camera, v camera.Variant) (probe.Result, error)

// LaunchFunc starts the persistent relay for a camera onto a device.
type LaunchFunc func(cam *camera.Camera, v camera.Variant, fps float64, devicePath string) (RelayHandle, error)

// Options configures a Supervisor. Probe, Launch, Reachable and Slots
// are injected so tests can supervise fake processes.
type Options struct {
	Cameras  []*camera.Camera
	Variants []camera.Variant

	Probe     ProbeFunc
	Launch    LaunchFunc
	Reachable func(address string) bool
	Slots     func() (map[int]string, error)

	Bus    *events.Bus
	Logger *slog.Logger

	// Tunables; zero values take the defaults below.
	Tick               time.Duration
	BackoffBase        time.Duration
	BackoffFactor      float64
	BackoffCap         time.Duration
	AttemptsPerVariant int
}

const (
	defaultTick               = 1 * time.Second
	defaultBackoffBase        = 5 * time.Second
	defaultBackoffFactor      = 1.5
	defaultBackoffCap         = 30 * time.Second
	defaultAttemptsPerVariant = 4
)

// supervised is the per-camera supervision record. Only the supervisor
// goroutine touches it.
type supervised struct {
	cam      *camera.Camera
	device   string
	state    string
	reason   string
	cursor   int
	backoff  time.Duration
	handle   RelayHandle
	selected *quality.Selection
	restarts int
}

// Supervisor drives the camera fleet from a single goroutine. All
// probing and relaunching happens inline in that goroutine, so a camera
// deep in its fallback cycle delays service of its peers until the next
// loop pass. Exit detection is non-blocking, which keeps the common
// healthy path cheap.
type Supervisor struct {
	opts    Options
	fleet   []*supervised
	records chan []camera.Record
	done    chan struct{}
}

// New creates a supervisor for the registered cameras.
func New(opts Options) *Supervisor {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffFactor <= 1 {
		opts.BackoffFactor = defaultBackoffFactor
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = defaultBackoffCap
	}
	if opts.AttemptsPerVariant <= 0 {
		opts.AttemptsPerVariant = defaultAttemptsPerVariant
	}
	if len(opts.Variants) == 0 {
		opts.Variants = camera.Variants
	}

	s := &Supervisor{
		opts:    opts,
		records: make(chan []camera.Record, 1),
		done:    make(chan struct{}),
	}
	for _, cam := range opts.Cameras {
		sup := &supervised{cam: cam, backoff: opts.BackoffBase}
		if cam.Skipped {
			sup.state = StateSkipped
			sup.reason = cam.SkipReason
		}
		s.fleet = append(s.fleet, sup)
	}
	return s
}

// Startup performs the initial stream assignment for every camera and
// returns the per-camera outcome for the summary table. Cameras that
// fail here are not abandoned; they enter the fallback cycle once Run
// starts ticking.
func (s *Supervisor) Startup(ctx context.Context) []Status {
	slots := s.slotDevices()

	for _, sup := range s.fleet {
		if sup.state == StateSkipped {
			s.publish(events.CameraSkippedEvent{Slot: sup.cam.Slot, Address: sup.cam.Address, Reason: sup.reason})
			continue
		}
		if ctx.Err() != nil {
			break
		}

		device, ok := slots[sup.cam.Slot]
		if !ok {
			s.skip(sup, camera.SkipNoSlot)
			continue
		}
		sup.device = device

		if !s.opts.Reachable(sup.cam.Address) {
			s.opts.Logger.Warn("Camera unreachable at startup", "slot", sup.cam.Slot, "address", sup.cam.Address)
			s.setState(sup, StateFallback, ReasonUnreachable)
			continue
		}

		selector := quality.NewSelector()
		for _, v := range s.opts.Variants {
			if ctx.Err() != nil {
				break
			}
			res, err := s.opts.Probe(ctx, sup.cam, v)
			s.publishProbe(sup, v, res, err)
			if err != nil {
				continue
			}
			selector.Offer(v, res)
		}

		best := selector.Best()
		if best == nil {
			s.opts.Logger.Warn("No usable stream variant at startup", "slot", sup.cam.Slot, "address", sup.cam.Address)
			s.setState(sup, StateFallback, ReasonNoUsableVariant)
			continue
		}

		if !s.launch(sup, best, false) {
			s.setState(sup, StateFallback, ReasonSpawnFailed)
		}
	}

	return s.Statuses()
}

// Run drives the supervision loop until the context is cancelled, then
// stops every live relay. It blocks; callers run it in a goroutine.
func (s *Supervisor) Run(ctx context.Context) error {
	defer close(s.done)

	ticker := time.NewTicker(s.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case records := <-s.records:
			s.applyRecords(records)
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// Done is closed once Run has stopped all relays and returned.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// ApplyRecords hands a freshly loaded camera list to the supervision
// loop. Only credentials and addresses of already registered slots are
// updated; slot count changes require a restart. A pending unapplied
// list is replaced.
func (s *Supervisor) ApplyRecords(records []camera.Record) {
	for {
		select {
		case s.records <- records:
			return
		default:
			select {
			case <-s.records:
			default:
			}
		}
	}
}

// poll services the fleet for one tick.
func (s *Supervisor) poll(ctx context.Context) {
	for _, sup := range s.fleet {
		if ctx.Err() != nil {
			return
		}

		switch sup.state {
		case StateRunning:
			if sup.handle.Exited() {
				code := sup.handle.ExitCode()
				s.opts.Logger.Warn("Relay exited",
					"slot", sup.cam.Slot, "address", sup.cam.Address,
					"variant", sup.selected.Variant.Name, "exit_code", code)
				s.publish(events.RelayExitedEvent{
					Slot: sup.cam.Slot, Address: sup.cam.Address,
					Variant: sup.selected.Variant.Name, ExitCode: code,
				})
				sup.handle = nil
				s.setState(sup, StateFallback, ReasonRelayExited)
				s.fallbackCycle(ctx, sup)
			}
		case StateFallback:
			s.fallbackCycle(ctx, sup)
		}
	}
}

// fallbackCycle probes variants round-robin across a bounded attempt
// budget and relaunches the best scorer. On an empty-handed budget the
// camera stays in fallback with a grown backoff delay and the cycle
// restarts on a later tick. The cycle runs inline and blocks the loop.
func (s *Supervisor) fallbackCycle(ctx context.Context, sup *supervised) {
	budget := s.opts.AttemptsPerVariant * len(s.opts.Variants)
	selector := quality.NewSelector()

	s.opts.Logger.Info("Entering fallback cycle",
		"slot", sup.cam.Slot, "address", sup.cam.Address, "attempts", budget)

	for attempt := 0; attempt < budget; attempt++ {
		if ctx.Err() != nil {
			return
		}

		if _, ok := s.slotDevices()[sup.cam.Slot]; !ok {
			s.opts.Logger.Error("Capture device disappeared, abandoning camera",
				"slot", sup.cam.Slot, "address", sup.cam.Address, "device", sup.device)
			s.skip(sup, ReasonSlotLost)
			return
		}

		if !s.opts.Reachable(sup.cam.Address) {
			s.opts.Logger.Warn("Camera unreachable, backing off",
				"slot", sup.cam.Slot, "address", sup.cam.Address, "delay", sup.backoff)
			if !s.sleep(ctx, sup) {
				return
			}
			continue
		}

		v := s.opts.Variants[sup.cursor]
		sup.cursor = (sup.cursor + 1) % len(s.opts.Variants)

		res, err := s.opts.Probe(ctx, sup.cam, v)
		s.publishProbe(sup, v, res, err)
		if err != nil {
			continue
		}
		selector.Offer(v, res)
	}

	if best := selector.Best(); best != nil {
		if s.launch(sup, best, true) {
			sup.backoff = s.opts.BackoffBase
			return
		}
		s.setState(sup, StateFallback, ReasonSpawnFailed)
		s.sleep(ctx, sup)
		return
	}

	s.opts.Logger.Warn("Fallback cycle found no usable variant",
		"slot", sup.cam.Slot, "address", sup.cam.Address, "delay", sup.backoff)
	s.setState(sup, StateFallback, ReasonNoUsableVariant)
	s.sleep(ctx, sup)
}

// launch starts the relay for the selected variant. Returns false on
// spawn failure.
func (s *Supervisor) launch(sup *supervised, sel *quality.Selection, restart bool) bool {
	h, err := s.opts.Launch(sup.cam, sel.Variant, sel.Result.FPS, sup.device)
	if err != nil {
		s.opts.Logger.Error("Failed to launch relay",
			"slot", sup.cam.Slot, "address", sup.cam.Address,
			"variant", sel.Variant.Name, "error", err)
		return false
	}

	sup.handle = h
	sup.selected = sel
	if restart {
		sup.restarts++
	}
	s.setState(sup, StateRunning, "")
	s.publish(events.RelayStartedEvent{
		Slot: sup.cam.Slot, Address: sup.cam.Address,
		Variant: sel.Variant.Name, Device: sup.device,
		PID: h.PID(), Restart: restart,
	})
	return true
}

// sleep waits out the current backoff delay and grows it for the next
// wait. Returns false if the context was cancelled during the wait.
func (s *Supervisor) sleep(ctx context.Context, sup *supervised) bool {
	prev := sup.state
	s.setState(sup, StateBackoff, sup.reason)

	timer := time.NewTimer(sup.backoff)
	defer timer.Stop()

	var ok bool
	select {
	case <-ctx.Done():
		ok = false
	case <-timer.C:
		ok = true
	}

	next := time.Duration(float64(sup.backoff) * s.opts.BackoffFactor)
	if next > s.opts.BackoffCap {
		next = s.opts.BackoffCap
	}
	sup.backoff = next

	s.setState(sup, prev, sup.reason)
	return ok
}

// shutdown stops every live relay, gracefully first.
func (s *Supervisor) shutdown() {
	s.opts.Logger.Info("Shutting down, stopping relays")
	for _, sup := range s.fleet {
		if sup.handle != nil && sup.state == StateRunning {
			code := sup.handle.Stop()
			s.opts.Logger.Info("Relay stopped",
				"slot", sup.cam.Slot, "address", sup.cam.Address, "exit_code", code)
			s.publish(events.RelayExitedEvent{
				Slot: sup.cam.Slot, Address: sup.cam.Address,
				Variant: sup.selected.Variant.Name, ExitCode: code,
			})
			sup.handle = nil
		}
		if sup.state != StateSkipped {
			s.setState(sup, StateStopped, "")
		}
	}
}

// applyRecords updates credentials and addresses of registered cameras
// from a reloaded camera list. Updates take effect on the next probe or
// relaunch; running relays keep the URL they were started with.
func (s *Supervisor) applyRecords(records []camera.Record) {
	if len(records) != len(s.fleet) {
		s.opts.Logger.Warn("Reloaded camera list length differs from registered fleet, applying by position",
			"records", len(records), "registered", len(s.fleet))
	}

	for i, sup := range s.fleet {
		if i >= len(records) {
			break
		}
		rec := records[i]
		if rec.Address == "" || rec.Password == "" {
			continue
		}
		username := rec.Username
		if username == "" {
			username = camera.DefaultUsername
		}
		if sup.cam.Address != rec.Address || sup.cam.Username != username || sup.cam.Password != rec.Password {
			s.opts.Logger.Info("Camera record updated", "slot", sup.cam.Slot, "address", rec.Address)
			sup.cam.Address = rec.Address
			sup.cam.Username = username
			sup.cam.Password = rec.Password
		}
	}
}

// slotDevices enumerates the capture slots, returning an empty map on
// enumeration failure so a transient error reads as missing devices.
func (s *Supervisor) slotDevices() map[int]string {
	slots, err := s.opts.Slots()
	if err != nil {
		s.opts.Logger.Error("Failed to enumerate capture devices", "error", err)
		return map[int]string{}
	}
	return slots
}

// skip permanently excludes a camera from supervision.
func (s *Supervisor) skip(sup *supervised, reason string) {
	sup.cam.Skipped = true
	sup.cam.SkipReason = reason
	s.setState(sup, StateSkipped, reason)
	s.publish(events.CameraSkippedEvent{Slot: sup.cam.Slot, Address: sup.cam.Address, Reason: reason})
}

// setState transitions a camera's supervision state and publishes it.
func (s *Supervisor) setState(sup *supervised, state, reason string) {
	if sup.state == state && sup.reason == reason {
		return
	}
	from := sup.state
	sup.state = state
	sup.reason = reason
	s.publish(events.CameraStateEvent{
		Slot: sup.cam.Slot, Address: sup.cam.Address,
		From: from, To: state, Reason: reason,
	})
}

func (s *Supervisor) publishProbe(sup *supervised, v camera.Variant, res probe.Result, err error) {
	s.publish(events.ProbeResultEvent{
		Slot: sup.cam.Slot, Address: sup.cam.Address, Variant: v.Name,
		Success: err == nil,
		Width:   res.Width, Height: res.Height,
		FPS: res.FPS, DupFrames: res.DupFrames,
		Score: quality.Score(res),
	})
}

func (s *Supervisor) publish(ev events.Event) {
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(ev)
	}
}
