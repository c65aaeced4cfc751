package handlers

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/progress-pipeline/internal/progress"
)

// Metrics exports the event stream via Prometheus. It owns all collectors for
// event counts, lifecycle milestones, and the latest progress position.
type Metrics struct {
	events          *prometheus.CounterVec
	lifecycle       *prometheus.CounterVec
	progressCurrent prometheus.Gauge
	progressMax     prometheus.Gauge
	progressRatio   prometheus.Gauge
	finished        prometheus.Gauge
}

// NewMetrics registers the collectors against the provided registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_events_total",
			Help: "Events handled partitioned by kind.",
		}, []string{"kind"}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progress_lifecycle_events_total",
			Help: "Lifecycle milestones partitioned by lifecycle kind.",
		}, []string{"lifecycle"}),
		progressCurrent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_current",
			Help: "Most recently reported progress position.",
		}),
		progressMax: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_max",
			Help: "Most recently reported progress length.",
		}),
		progressRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_ratio",
			Help: "Most recently reported position over length, clamped to [0, 1].",
		}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "progress_finished",
			Help: "Set to 1 once the event stream has been finalized.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		m.events,
		m.lifecycle,
		m.progressCurrent,
		m.progressMax,
		m.progressRatio,
		m.finished,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return m, nil
}

// Handle updates the collectors for evt.
func (m *Metrics) Handle(_ context.Context, evt progress.Event) error {
	kind := "unknown"
	switch evt.Kind {
	case progress.KindStatus, progress.KindProgress, progress.KindLifecycle:
		kind = string(evt.Kind)
	}
	m.events.WithLabelValues(kind).Inc()
	switch evt.Kind {
	case progress.KindProgress:
		m.progressCurrent.Set(float64(evt.Current))
		m.progressMax.Set(float64(evt.Max))
		m.progressRatio.Set(ratio(evt.Current, evt.Max))
	case progress.KindLifecycle:
		label := string(evt.Lifecycle.Kind)
		if label == "" {
			label = "unknown"
		}
		m.lifecycle.WithLabelValues(label).Inc()
	}
	return nil
}

// Finish marks the stream as finalized.
func (m *Metrics) Finish(context.Context) error {
	m.finished.Set(1)
	return nil
}
