package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GenAIMetrics records calls to the explanation providers.
type GenAIMetrics struct {
	OperationDuration metric.Float64Histogram
	TokenUsage        metric.Float64Histogram
	RetryCount        metric.Int64Counter
	FallbackCount     metric.Int64Counter
	ErrorCount        metric.Int64Counter
}

func NewGenAIMetrics(m metric.Meter) (*GenAIMetrics, error) {
	operationDuration, err := m.Float64Histogram("gen_ai.client.operation.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall-clock duration of LLM API call"),
	)
	if err != nil {
		return nil, err
	}

	tokenUsage, err := m.Float64Histogram("gen_ai.client.token.usage",
		metric.WithUnit("{token}"),
		metric.WithDescription("Number of tokens used per LLM call"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := m.Int64Counter("gen_ai.client.retry.count",
		metric.WithUnit("{retry}"),
		metric.WithDescription("Number of retry attempts"),
	)
	if err != nil {
		return nil, err
	}

	fallbackCount, err := m.Int64Counter("gen_ai.client.fallback.count",
		metric.WithUnit("{fallback}"),
		metric.WithDescription("Number of fallback provider triggers"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := m.Int64Counter("gen_ai.client.error.count",
		metric.WithUnit("{error}"),
		metric.WithDescription("Number of LLM call errors"),
	)
	if err != nil {
		return nil, err
	}

	return &GenAIMetrics{
		OperationDuration: operationDuration,
		TokenUsage:        tokenUsage,
		RetryCount:        retryCount,
		FallbackCount:     fallbackCount,
		ErrorCount:        errorCount,
	}, nil
}

func WithProviderModel(provider, model string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("gen_ai.provider.name", provider),
		attribute.String("gen_ai.request.model", model),
	)
}
