package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for slot probing and booking outcomes.
type SchedulingMetrics struct {
	bookingTotal *prometheus.CounterVec
	probeTotal   *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "booking_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		probeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "probe_total",
			Help:      "Next-available-slot probes by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingTotal, m.probeTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveProbe(result string) {
	if m == nil {
		return
	}
	m.probeTotal.WithLabelValues(result).Inc()
}

// ConversationMetrics exposes counters/histograms for text-mode turns.
type ConversationMetrics struct {
	turnTotal      *prometheus.CounterVec
	toolIterations prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "turn_total",
			Help:      "Resolved text turns by status",
		}, []string{"status"}),
		toolIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "conversation",
			Name:      "tool_iterations",
			Help:      "Tool-resolution rounds per turn",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnTotal, m.toolIterations)
	return m
}

func (m *ConversationMetrics) ObserveTurn(status string, iterations int) {
	if m == nil {
		return
	}
	m.turnTotal.WithLabelValues(status).Inc()
	m.toolIterations.Observe(float64(iterations))
}

// VoiceMetrics exposes counters for realtime voice sessions.
type VoiceMetrics struct {
	sessionTotal  *prometheus.CounterVec
	toolCallTotal *prometheus.CounterVec
	framesTotal   prometheus.Counter
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		sessionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "session_total",
			Help:      "Voice sessions by terminal status",
		}, []string{"status"}),
		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "tool_call_total",
			Help:      "Mid-call tool invocations by function name",
		}, []string{"name"}),
		framesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "voice",
			Name:      "audio_frames_sent_total",
			Help:      "Outbound PCM frames streamed to the AI service",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sessionTotal, m.toolCallTotal, m.framesTotal)
	return m
}

func (m *VoiceMetrics) ObserveSession(status string) {
	if m == nil {
		return
	}
	m.sessionTotal.WithLabelValues(status).Inc()
}

func (m *VoiceMetrics) ObserveToolCall(name string) {
	if m == nil {
		return
	}
	m.toolCallTotal.WithLabelValues(name).Inc()
}

func (m *VoiceMetrics) ObserveFrameSent() {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
}
