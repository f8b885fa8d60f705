package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// StateTransitions tracks state changes by source and destination state
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobooth_state_transitions_total",
			Help: "Total session state transitions by source and destination",
		},
		[]string{"from", "to"},
	)

	// CurrentState is 1 for the active session state and 0 for the others
	CurrentState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photobooth_state",
			Help: "Current session state (1 = active)",
		},
		[]string{"state"},
	)

	// InputsDropped tracks key events discarded by the button lockout
	InputsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobooth_inputs_dropped_total",
			Help: "Key events dropped during the input lockout, by source",
		},
		[]string{"source"},
	)
)

// Capture and Print Metrics
var (
	// PhotosTaken tracks successful captures
	PhotosTaken = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photobooth_photos_taken_total",
			Help: "Total photos captured",
		},
	)

	// PrintsSubmitted tracks print jobs sent to the printer
	PrintsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photobooth_prints_submitted_total",
			Help: "Total print jobs submitted",
		},
	)

	// PrintCopies tracks the number of sheets requested across all jobs
	PrintCopies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photobooth_print_copies_total",
			Help: "Total copies requested across all print jobs",
		},
	)
)

// Web Panel Metrics
var (
	// StatusStreamClients tracks connected SSE clients
	StatusStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photobooth_status_stream_clients",
			Help: "Number of connected status stream clients",
		},
	)

	// ScreenKeys tracks on-screen key presses received by the web panel
	ScreenKeys = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photobooth_screen_keys_total",
			Help: "On-screen key presses received, by key",
		},
		[]string{"key"},
	)
)

// Session feeds the session counters. Its zero value is ready to use.
type Session struct{}

func (Session) Transition(from, to string) {
	StateTransitions.WithLabelValues(from, to).Inc()
	CurrentState.WithLabelValues(from).Set(0)
	CurrentState.WithLabelValues(to).Set(1)
}

func (Session) PhotoTaken() {
	PhotosTaken.Inc()
}

func (Session) PrintSubmitted(copies int) {
	PrintsSubmitted.Inc()
	PrintCopies.Add(float64(copies))
}

func (Session) InputDropped(source string) {
	InputsDropped.WithLabelValues(source).Inc()
}
