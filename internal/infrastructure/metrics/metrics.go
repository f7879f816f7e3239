package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the relay's instrumentation. A nil *Metrics is valid and
// records nothing, so tests can pass nil without a registry.
type Metrics struct {
	RoomsActive        prometheus.Gauge
	ParticipantsActive prometheus.Gauge

	SignalsRelayed  *prometheus.CounterVec
	SignalsRejected *prometheus.CounterVec
	FramesDropped   prometheus.Counter

	AudioChunksForwarded prometheus.Counter
	AudioChunksDropped   prometheus.Counter
	AudioBytesForwarded  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshconf",
			Name:      "rooms_active",
			Help:      "Number of rooms currently holding at least one participant.",
		}),
		ParticipantsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshconf",
			Name:      "participants_active",
			Help:      "Number of participants currently connected across all rooms.",
		}),
		SignalsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "signals_relayed_total",
			Help:      "Negotiation frames delivered to their target.",
		}, []string{"type"}),
		SignalsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "signals_rejected_total",
			Help:      "Negotiation frames rejected during validation.",
		}, []string{"reason"}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "frames_dropped_total",
			Help:      "Outbound frames dropped because a client send queue was full.",
		}),
		AudioChunksForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "audio_chunks_forwarded_total",
			Help:      "Audio chunks forwarded to the transcription sink.",
		}),
		AudioChunksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "audio_chunks_dropped_total",
			Help:      "Audio chunks dropped because a relay queue was full.",
		}),
		AudioBytesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshconf",
			Name:      "audio_bytes_forwarded_total",
			Help:      "Audio payload bytes forwarded to the transcription sink.",
		}),
	}

	reg.MustRegister(
		m.RoomsActive,
		m.ParticipantsActive,
		m.SignalsRelayed,
		m.SignalsRejected,
		m.FramesDropped,
		m.AudioChunksForwarded,
		m.AudioChunksDropped,
		m.AudioBytesForwarded,
	)

	return m
}

func (m *Metrics) RoomOpened() {
	if m == nil {
		return
	}
	m.RoomsActive.Inc()
}

func (m *Metrics) RoomClosed() {
	if m == nil {
		return
	}
	m.RoomsActive.Dec()
}

func (m *Metrics) ParticipantJoined() {
	if m == nil {
		return
	}
	m.ParticipantsActive.Inc()
}

func (m *Metrics) ParticipantLeft() {
	if m == nil {
		return
	}
	m.ParticipantsActive.Dec()
}

func (m *Metrics) SignalRelayed(frameType string) {
	if m == nil {
		return
	}
	m.SignalsRelayed.WithLabelValues(frameType).Inc()
}

func (m *Metrics) SignalRejected(reason string) {
	if m == nil {
		return
	}
	m.SignalsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) AudioForwarded(bytes int) {
	if m == nil {
		return
	}
	m.AudioChunksForwarded.Inc()
	m.AudioBytesForwarded.Add(float64(bytes))
}

func (m *Metrics) AudioDropped() {
	if m == nil {
		return
	}
	m.AudioChunksDropped.Inc()
}
