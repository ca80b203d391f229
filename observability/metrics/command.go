package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CommandMetrics exposes the request/latency/error series for the external
// command surface: one count and one latency observation per dispatched
// command, labeled by outcome.
type CommandMetrics struct {
	requestsTotal *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

var (
	commandOnce     sync.Once
	commandRegistry *CommandMetrics
)

// Command returns the process-wide CommandMetrics singleton, registering
// its series with the default Prometheus registry on first use.
func Command() *CommandMetrics {
	commandOnce.Do(func() {
		commandRegistry = &CommandMetrics{
			requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "facemelt_commands_total",
				Help: "Count of dispatched commands, by command name and outcome.",
			}, []string{"command", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "facemelt_command_duration_seconds",
				Help:    "Dispatch latency per command.",
				Buckets: prometheus.DefBuckets,
			}, []string{"command"}),
		}
		prometheus.MustRegister(commandRegistry.requestsTotal, commandRegistry.latency)
	})
	return commandRegistry
}

// Observe records one dispatch of command, with outcome "ok" or "error" and
// the wall-clock duration it took.
func (m *CommandMetrics) Observe(command string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requestsTotal.WithLabelValues(command, outcome).Inc()
	m.latency.WithLabelValues(command).Observe(duration.Seconds())
}
