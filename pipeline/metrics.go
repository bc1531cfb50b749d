package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/tnqbao/gau-focus-service/entity"
)

const instrumentationName = "github.com/tnqbao/gau-focus-service/pipeline"

type pipelineMetrics struct {
	submitted     metric.Int64Counter
	finished      metric.Int64Counter
	stageDuration metric.Float64Histogram
}

func newPipelineMetrics(meter metric.Meter) *pipelineMetrics {
	m := &pipelineMetrics{}
	var err error

	m.submitted, err = meter.Int64Counter("focus.jobs.submitted",
		metric.WithDescription("Focus session jobs accepted"))
	if err != nil {
		otel.Handle(err)
		m.submitted = noop.Int64Counter{}
	}

	m.finished, err = meter.Int64Counter("focus.jobs.finished",
		metric.WithDescription("Focus session jobs that reached a terminal state"))
	if err != nil {
		otel.Handle(err)
		m.finished = noop.Int64Counter{}
	}

	m.stageDuration, err = meter.Float64Histogram("focus.pipeline.stage.duration",
		metric.WithDescription("Wall time of one pipeline stage"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
		m.stageDuration = noop.Float64Histogram{}
	}

	return m
}

func (m *pipelineMetrics) recordSubmitted(ctx context.Context, async bool) {
	m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("async", async)))
}

func (m *pipelineMetrics) recordFinished(ctx context.Context, state entity.JobState) {
	m.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage, outcome string, seconds float64) {
	m.stageDuration.Record(ctx, seconds, metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}
