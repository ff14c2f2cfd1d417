package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(RelayStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case CameraStateEvent:
		event.Publish(b.dispatcher, e)
	case ProbeResultEvent:
		event.Publish(b.dispatcher, e)
	case RelayStartedEvent:
		event.Publish(b.dispatcher, e)
	case RelayExitedEvent:
		event.Publish(b.dispatcher, e)
	case CameraSkippedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e RelayStartedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(CameraStateEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ProbeResultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RelayStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RelayExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CameraSkippedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
