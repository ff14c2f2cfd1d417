// Package events provides the in-process event bus used to decouple the
// supervisor from reactive subsystems such as the metrics bridge.
package events

// Event type constants for kelindar/event.
const (
	TypeCameraState uint32 = iota + 1
	TypeProbeResult
	TypeRelayStarted
	TypeRelayExited
	TypeCameraSkipped
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// CameraStateEvent is published on every supervisor state transition.
type CameraStateEvent struct {
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
}

// Type returns the event type identifier for CameraStateEvent.
func (e CameraStateEvent) Type() uint32 { return TypeCameraState }

// ProbeResultEvent is published after each variant probe attempt.
type ProbeResultEvent struct {
	Slot      int     `json:"slot"`
	Address   string  `json:"address"`
	Variant   string  `json:"variant"`
	Success   bool    `json:"success"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FPS       float64 `json:"fps"`
	DupFrames int     `json:"dup_frames"`
	Score     float64 `json:"score"`
}

// Type returns the event type identifier for ProbeResultEvent.
func (e ProbeResultEvent) Type() uint32 { return TypeProbeResult }

// RelayStartedEvent is published when a relay process is bound to a slot.
type RelayStartedEvent struct {
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	Variant string `json:"variant"`
	Device  string `json:"device"`
	PID     int    `json:"pid"`
	Restart bool   `json:"restart"`
}

// Type returns the event type identifier for RelayStartedEvent.
func (e RelayStartedEvent) Type() uint32 { return TypeRelayStarted }

// RelayExitedEvent is published when the supervisor detects a relay exit.
type RelayExitedEvent struct {
	Slot     int    `json:"slot"`
	Address  string `json:"address"`
	Variant  string `json:"variant"`
	ExitCode int    `json:"exit_code"`
}

// Type returns the event type identifier for RelayExitedEvent.
func (e RelayExitedEvent) Type() uint32 { return TypeRelayExited }

// CameraSkippedEvent is published when a camera is permanently excluded
// from supervision.
type CameraSkippedEvent struct {
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// Type returns the event type identifier for CameraSkippedEvent.
func (e CameraSkippedEvent) Type() uint32 { return TypeCameraSkipped }
