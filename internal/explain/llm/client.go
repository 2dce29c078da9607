package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/andresuchdata/restock-engine/internal/telemetry"
)

type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	// SKU tags the span with the item being explained.
	SKU string
}

type GenerateResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	Name() string
}

const defaultMaxTries = 3

type Client struct {
	Primary              Provider
	Fallback             Provider
	Tracer               trace.Tracer
	Metrics              *telemetry.GenAIMetrics
	PrimaryProvider      string
	FallbackProviderName string
	// FallbackModel replaces the request model when the fallback provider
	// is used.
	FallbackModel string
	// RetryInitial is the first backoff interval. Zero means one second.
	RetryInitial time.Duration
	MaxTries     uint
}

func (c *Client) tracer() trace.Tracer {
	if c.Tracer == nil {
		return noop.NewTracerProvider().Tracer("llm")
	}
	return c.Tracer
}

func (c *Client) GenerateOnce(ctx context.Context, provider Provider, providerName string, req GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	ctx, span := c.tracer().Start(ctx, "gen_ai.chat "+req.Model)
	defer span.End()

	span.SetAttributes(
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.provider.name", providerName),
		attribute.String("gen_ai.request.model", req.Model),
		attribute.Float64("gen_ai.request.temperature", req.Temperature),
		attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
	)
	if req.SKU != "" {
		span.SetAttributes(attribute.String("restock.sku", req.SKU))
	}

	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.prompt", truncate(req.Prompt, 1000)),
	))

	resp, err := provider.Generate(ctx, req)
	duration := time.Since(start).Seconds()

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", classifyError(err)))
		if c.Metrics != nil {
			c.Metrics.ErrorCount.Add(ctx, 1, telemetry.WithProviderModel(providerName, req.Model))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.String("gen_ai.response.model", resp.Model),
		attribute.Int("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", resp.OutputTokens),
	)
	if resp.FinishReason != "" {
		span.SetAttributes(attribute.String("gen_ai.response.finish_reasons", resp.FinishReason))
	}

	span.AddEvent("gen_ai.assistant.message", trace.WithAttributes(
		attribute.String("gen_ai.completion", truncate(resp.Content, 2000)),
	))

	if c.Metrics != nil {
		opt := telemetry.WithProviderModel(providerName, resp.Model)
		c.Metrics.OperationDuration.Record(ctx, duration, opt)
		c.Metrics.TokenUsage.Record(ctx, float64(resp.InputTokens+resp.OutputTokens), opt)
	}

	return resp, nil
}

func (c *Client) GenerateWithRetry(ctx context.Context, provider Provider, providerName string, req GenerateRequest) (*GenerateResponse, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	if c.RetryInitial > 0 {
		bo.InitialInterval = c.RetryInitial
	}
	bo.MaxInterval = 10 * bo.InitialInterval

	tries := c.MaxTries
	if tries == 0 {
		tries = defaultMaxTries
	}

	return backoff.Retry(ctx, func() (*GenerateResponse, error) {
		resp, err := c.GenerateOnce(ctx, provider, providerName, req)
		if err != nil {
			if isPermanent(err) {
				return nil, backoff.Permanent(err)
			}
			if c.Metrics != nil {
				c.Metrics.RetryCount.Add(ctx, 1, telemetry.WithProviderModel(providerName, req.Model))
			}
			return nil, err
		}
		return resp, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(tries),
	)
}

// Generate tries the primary provider with retries, then the fallback.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	resp, err := c.GenerateWithRetry(ctx, c.Primary, c.PrimaryProvider, req)
	if err == nil {
		return resp, nil
	}

	if c.Fallback == nil || ctx.Err() != nil {
		return nil, fmt.Errorf("primary provider %s failed after retries: %w", c.PrimaryProvider, err)
	}

	if c.Metrics != nil {
		c.Metrics.FallbackCount.Add(ctx, 1)
	}

	fallbackReq := req
	if c.FallbackModel != "" {
		fallbackReq.Model = c.FallbackModel
	}
	resp, err = c.GenerateWithRetry(ctx, c.Fallback, c.FallbackProviderName, fallbackReq)
	if err != nil {
		return nil, fmt.Errorf("fallback provider %s failed after retries: %w", c.FallbackProviderName, err)
	}
	return resp, nil
}

// classifyError buckets provider errors for span attributes.
func classifyError(err error) string {
	if err == nil {
		return "unknown_error"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "rate_limit"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "auth") || strings.Contains(msg, "api key"):
		return "auth_error"
	case strings.Contains(msg, "400") || strings.Contains(msg, "422") || strings.Contains(msg, "invalid"):
		return "invalid_request"
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") || strings.Contains(msg, "503"):
		return "server_error"
	case strings.Contains(msg, "connect") || strings.Contains(msg, "dns") || strings.Contains(msg, "reset"):
		return "network_error"
	}
	return "unknown_error"
}

// Auth and request errors do not improve on retry.
func isPermanent(err error) bool {
	switch classifyError(err) {
	case "auth_error", "invalid_request":
		return true
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
