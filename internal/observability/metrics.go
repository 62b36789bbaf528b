package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const pipelineMeterName = "txcommit/pipeline"

// PipelineMetrics holds the counters the pipeline stages report into.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	allocations metric.Int64Counter
	sealed      metric.Int64Counter
	batchItems  metric.Int64Histogram
	submissions metric.Int64Counter
	outcomes    metric.Int64Counter
	deliveries  metric.Int64Counter
}

// NewPipelineMetrics registers pipeline instruments on the global meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(pipelineMeterName)
	m := &PipelineMetrics{}
	var err error
	if m.allocations, err = meter.Int64Counter("txcommit.sequence.allocations",
		metric.WithDescription("Sequence numbers handed out by result")); err != nil {
		return nil, err
	}
	if m.sealed, err = meter.Int64Counter("txcommit.batch.sealed",
		metric.WithDescription("Batches sealed by trigger")); err != nil {
		return nil, err
	}
	if m.batchItems, err = meter.Int64Histogram("txcommit.batch.items",
		metric.WithDescription("Items per sealed batch")); err != nil {
		return nil, err
	}
	if m.submissions, err = meter.Int64Counter("txcommit.submissions",
		metric.WithDescription("Chain submissions by result")); err != nil {
		return nil, err
	}
	if m.outcomes, err = meter.Int64Counter("txcommit.outcomes",
		metric.WithDescription("Terminal transaction outcomes by status")); err != nil {
		return nil, err
	}
	if m.deliveries, err = meter.Int64Counter("txcommit.deliveries",
		metric.WithDescription("Callback delivery attempts by result")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) Allocation(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.allocations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *PipelineMetrics) BatchSealed(ctx context.Context, trigger string, items int) {
	if m == nil {
		return
	}
	m.sealed.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
	m.batchItems.Record(ctx, int64(items))
}

func (m *PipelineMetrics) Submission(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *PipelineMetrics) Outcome(ctx context.Context, txType, status string) {
	if m == nil {
		return
	}
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tx_type", txType),
		attribute.String("status", status),
	))
}

func (m *PipelineMetrics) Delivery(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
