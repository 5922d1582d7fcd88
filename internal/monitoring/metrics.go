// Package monitoring records batch-run metrics and pushes them to a
// Prometheus Pushgateway when one is configured.
package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const JOB_NAME = "aspectflow_precompute"

type Metrics struct {
	registry *prometheus.Registry

	StageDuration   *prometheus.HistogramVec
	StageRecords    *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
	AnnotatedRows   prometheus.Gauge
	TestAccuracy    prometheus.Gauge
	TestLoss        prometheus.Gauge
	AspectsAssigned *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
}

// NewMetrics registers every metric on a fresh registry, so several runs in
// one process (tests) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aspectflow_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),
		StageRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aspectflow_stage_records_total",
			Help: "Records processed per pipeline stage",
		}, []string{"stage"}),
		RecordsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aspectflow_records_dropped_total",
			Help: "Records dropped from a stage, by reason",
		}, []string{"reason"}),
		AnnotatedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aspectflow_annotated_rows",
			Help: "Rows in the annotated fact table of the last run",
		}),
		TestAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aspectflow_classifier_test_accuracy",
			Help: "Held-out accuracy of the sentiment classifier",
		}),
		TestLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aspectflow_classifier_test_loss",
			Help: "Held-out cross-entropy of the sentiment classifier",
		}),
		AspectsAssigned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aspectflow_aspects_assigned_total",
			Help: "Aspect labels assigned, by label",
		}, []string{"aspect"}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aspectflow_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
}

// ObserveStage records how long a stage took and how many records it saw.
func (m *Metrics) ObserveStage(stage string, records int, elapsed time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	m.StageRecords.WithLabelValues(stage).Add(float64(records))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to the Pushgateway at url. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	if url == "" {
		return nil
	}

	err := push.New(url, JOB_NAME).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}

	slog.Info("[Monitoring] Pushed run metrics", slog.String("pushgateway", url))
	return nil
}
