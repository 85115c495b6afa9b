package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"staycheck/internal/events"
)

// Metrics holds Prometheus metrics for suite runs.
type Metrics struct {
	registry *prometheus.Registry

	// ScenariosTotal counts finished scenarios by name and outcome.
	ScenariosTotal *prometheus.CounterVec

	// ScenarioDuration is the wall time of each scenario.
	ScenarioDuration *prometheus.HistogramVec

	// PageLoad is the measured home page load time.
	PageLoad prometheus.Histogram

	// CalendarAdvances counts Next Month clicks.
	CalendarAdvances prometheus.Counter

	// BackendFailures counts 500 responses from the booking API.
	BackendFailures prometheus.Counter
}

// New creates the metrics on a fresh registry, so each run pushes only its own series.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ScenariosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scenarios_total",
				Help:      "Total number of finished scenarios",
			},
			[]string{"scenario", "outcome"},
		),

		ScenarioDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scenario_duration_seconds",
				Help:      "Time to run a scenario",
				Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"scenario"},
		),

		PageLoad: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "page_load_seconds",
				Help:      "Home page navigation time",
				Buckets:   []float64{.1, .25, .5, 1, 2, 5},
			},
		),

		CalendarAdvances: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calendar_advances_total",
				Help:      "Total number of Next Month clicks",
			},
		),

		BackendFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_failures_total",
				Help:      "Total number of booking API 500 responses",
			},
		),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Attach subscribes the metrics to bus.
func (m *Metrics) Attach(bus *events.Bus) {
	bus.Subscribe(events.ScenarioFinished, func(e events.Event) {
		m.ScenariosTotal.WithLabelValues(e.Scenario, e.Outcome).Inc()
		m.ScenarioDuration.WithLabelValues(e.Scenario).Observe(e.Duration.Seconds())
	})
	bus.Subscribe(events.PageLoaded, func(e events.Event) {
		m.PageLoad.Observe(e.Duration.Seconds())
	})
	bus.Subscribe(events.CalendarAdvanced, func(e events.Event) {
		m.CalendarAdvances.Add(float64(e.Count))
	})
	bus.Subscribe(events.BackendFailure, func(events.Event) {
		m.BackendFailures.Inc()
	})
}

// Push sends the registry to a Pushgateway, grouped by run ID.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job, runID string) error {
	err := push.New(gatewayURL, job).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
