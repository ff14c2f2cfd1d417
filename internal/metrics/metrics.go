// Package metrics exposes Prometheus gauges describing relay and probe
// state, fed from the event bus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aab18011/ffmpeg-v4l2-connector/internal/events"
)

const namespace = "connector"

var (
	relayUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "up",
		Help:      "Whether a relay process is running for the capture slot (1 = running).",
	}, []string{"slot"})

	relayRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "relay",
		Name:      "restarts_total",
		Help:      "Number of times the relay for a capture slot has been relaunched.",
	}, []string{"slot"})

	probeScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "probe",
		Name:      "score",
		Help:      "Quality score of the most recent probe per slot and variant.",
	}, []string{"slot", "variant"})

	probeFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "probe",
		Name:      "fps",
		Help:      "Frames per second reported by the most recent probe.",
	}, []string{"slot", "variant"})

	probeDupFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "probe",
		Name:      "duplicate_frames",
		Help:      "Duplicate frame count reported by the most recent probe.",
	}, []string{"slot", "variant"})
)

// Bridge subscribes to the event bus and keeps the Prometheus metrics
// in sync with relay and probe activity.
func Bridge(bus *events.Bus) {
	bus.Subscribe(func(e events.RelayStartedEvent) {
		slot := slotLabel(e.Slot)
		relayUp.WithLabelValues(slot).Set(1)
		if e.Restart {
			relayRestarts.WithLabelValues(slot).Inc()
		}
	})

	bus.Subscribe(func(e events.RelayExitedEvent) {
		relayUp.WithLabelValues(slotLabel(e.Slot)).Set(0)
	})

	bus.Subscribe(func(e events.ProbeResultEvent) {
		slot := slotLabel(e.Slot)
		probeScore.WithLabelValues(slot, e.Variant).Set(e.Score)
		probeFPS.WithLabelValues(slot, e.Variant).Set(e.FPS)
		probeDupFrames.WithLabelValues(slot, e.Variant).Set(float64(e.DupFrames))
	})

	bus.Subscribe(func(e events.CameraSkippedEvent) {
		relayUp.WithLabelValues(slotLabel(e.Slot)).Set(0)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func slotLabel(slot int) string {
	return strconv.Itoa(slot)
}
