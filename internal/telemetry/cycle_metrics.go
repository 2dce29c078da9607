package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CycleMetrics records replenishment cycle measurements. It satisfies
// pipeline.Metrics.
type CycleMetrics struct {
	Cycles        metric.Int64Counter
	CycleDuration metric.Float64Histogram
	Decisions     metric.Int64Counter
	Alerts        metric.Int64Counter
	ItemFailures  metric.Int64Counter
	Skipped       metric.Int64Counter
}

func NewCycleMetrics(m metric.Meter) (*CycleMetrics, error) {
	cycles, err := m.Int64Counter("restock.cycle.count",
		metric.WithUnit("{cycle}"),
		metric.WithDescription("Replenishment cycles by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := m.Float64Histogram("restock.cycle.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock duration of a replenishment cycle"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := m.Int64Counter("restock.decision.count",
		metric.WithUnit("{decision}"),
		metric.WithDescription("Restock decisions by priority, action and approval"),
	)
	if err != nil {
		return nil, err
	}

	alerts, err := m.Int64Counter("restock.alert.count",
		metric.WithUnit("{alert}"),
		metric.WithDescription("Stock alerts by threshold type and tier"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := m.Int64Counter("restock.item.failure.count",
		metric.WithUnit("{item}"),
		metric.WithDescription("Items that failed evaluation"),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := m.Int64Counter("restock.item.skipped.count",
		metric.WithUnit("{item}"),
		metric.WithDescription("Items left unprocessed after a stop or deadline"),
	)
	if err != nil {
		return nil, err
	}

	return &CycleMetrics{
		Cycles:        cycles,
		CycleDuration: duration,
		Decisions:     decisions,
		Alerts:        alerts,
		ItemFailures:  failures,
		Skipped:       skipped,
	}, nil
}

func (c *CycleMetrics) RecordCycle(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("restock.cycle.status", status))
	c.Cycles.Add(ctx, 1, attrs)
	c.CycleDuration.Record(ctx, d.Seconds(), attrs)
}

func (c *CycleMetrics) RecordDecision(ctx context.Context, priority, action, approval string) {
	c.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("restock.priority", priority),
		attribute.String("restock.action", action),
		attribute.String("restock.approval", approval),
	))
}

func (c *CycleMetrics) RecordAlert(ctx context.Context, thresholdType, tier string) {
	c.Alerts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("restock.threshold_type", thresholdType),
		attribute.String("restock.tier", tier),
	))
}

func (c *CycleMetrics) RecordItemFailure(ctx context.Context, reason string) {
	c.ItemFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("restock.failure.reason", reason)))
}

func (c *CycleMetrics) RecordSkipped(ctx context.Context, n int) {
	c.Skipped.Add(ctx, int64(n))
}
