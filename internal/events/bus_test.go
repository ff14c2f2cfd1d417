package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan RelayStartedEvent, 1)

	unsub := bus.Subscribe(func(e RelayStartedEvent) {
		received <- e
	})
	defer unsub()

	event := RelayStartedEvent{
		Slot:    2,
		Address: "10.0.0.12",
		Variant: "main",
		Device:  "/dev/video2",
		PID:     4242,
	}
	bus.Publish(event)

	select {
	case got := <-received:
		if got.Slot != event.Slot || got.Variant != event.Variant {
			t.Errorf("got %+v, want %+v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := New()
	received1 := make(chan ProbeResultEvent, 1)
	received2 := make(chan ProbeResultEvent, 1)

	unsub1 := bus.Subscribe(func(e ProbeResultEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e ProbeResultEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(ProbeResultEvent{Slot: 0, Variant: "sub", Success: true})

	for i, ch := range []chan ProbeResultEvent{received1, received2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestBusTypeIsolation(t *testing.T) {
	bus := New()
	exited := make(chan RelayExitedEvent, 1)

	unsub := bus.Subscribe(func(e RelayExitedEvent) {
		exited <- e
	})
	defer unsub()

	bus.Publish(RelayStartedEvent{Slot: 1})

	select {
	case e := <-exited:
		t.Errorf("exit subscriber received wrong event type: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CameraSkippedEvent, 1)

	unsub := bus.Subscribe(func(e CameraSkippedEvent) {
		received <- e
	})
	unsub()

	bus.Publish(CameraSkippedEvent{Slot: 0, Reason: "no capture device"})

	select {
	case <-received:
		t.Error("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
