package config

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
)

// ValidationError lists every configuration problem found. The process
// refuses to start while any remain.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the configuration and returns a *ValidationError, or nil.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	r := c.Replenishment
	if r.CheckInterval <= 0 {
		add("CHECK_INTERVAL must be positive, got %s", r.CheckInterval)
	}
	if r.MaxCycleDuration <= 0 {
		add("MAX_CYCLE_DURATION must be positive, got %s", r.MaxCycleDuration)
	}
	if r.BackoffInitial <= 0 {
		add("BACKOFF_INITIAL must be positive, got %s", r.BackoffInitial)
	}
	if r.BackoffMax < r.BackoffInitial {
		add("BACKOFF_MAX (%s) must not be less than BACKOFF_INITIAL (%s)", r.BackoffMax, r.BackoffInitial)
	}
	if r.ExplainTimeout <= 0 {
		add("EXPLAIN_TIMEOUT must be positive, got %s", r.ExplainTimeout)
	}
	if r.LockTTL <= 0 {
		add("CYCLE_LOCK_TTL must be positive, got %s", r.LockTTL)
	}
	if r.AutoApproveThreshold < 0 || r.AutoApproveThreshold > 1 {
		add("AUTO_APPROVE_THRESHOLD must be within [0,1], got %v", r.AutoApproveThreshold)
	}
	if r.MaxAutoOrderValue < 0 {
		add("MAX_AUTO_ORDER_VALUE cannot be negative, got %v", r.MaxAutoOrderValue)
	}
	for _, m := range r.CriticalMonths {
		if m < 1 || m > 12 {
			add("CRITICAL_MONTHS: month %d outside 1-12", m)
		}
	}
	if r.WorkerCount < 1 {
		add("WORKER_COUNT must be at least 1, got %d", r.WorkerCount)
	}
	if r.SalesWindowDays < 1 {
		add("SALES_WINDOW_DAYS must be at least 1, got %d", r.SalesWindowDays)
	}
	if r.SafetyStockFactor < 0 {
		add("SAFETY_STOCK_FACTOR cannot be negative, got %v", r.SafetyStockFactor)
	}
	if r.PeakQuantityBoost < 0 {
		add("PEAK_QUANTITY_BOOST cannot be negative, got %v", r.PeakQuantityBoost)
	}

	if c.LLM.Enabled {
		switch c.LLM.PrimaryProvider {
		case "openai", "anthropic":
		default:
			add("LLM_PRIMARY_PROVIDER must be openai or anthropic, got %q", c.LLM.PrimaryProvider)
		}
		if c.LLM.OpenAIAPIKey == "" && c.LLM.AnthropicAPIKey == "" {
			add("LLM_ENABLED requires OPENAI_API_KEY or ANTHROPIC_API_KEY")
		}
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		add("STORAGE_BUCKET is required when STORAGE_ENABLED")
	}
	if c.PubSub.Enabled && c.PubSub.ProjectID == "" {
		add("PUBSUB_PROJECT_ID is required when PUBSUB_ENABLED")
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// Policy returns the engine policy with the configured overrides applied.
func (c *Config) Policy() replenishment.Policy {
	p := replenishment.DefaultPolicy()
	r := c.Replenishment
	p.MaxAutoOrderValue = r.MaxAutoOrderValue
	p.AutoApproveThreshold = r.AutoApproveThreshold
	p.SafetyStockFactor = r.SafetyStockFactor
	p.PeakQuantityBoost = r.PeakQuantityBoost
	if r.CriticalMonths != nil {
		p.CriticalMonths = append([]int(nil), r.CriticalMonths...)
	}
	return p
}

// Pipeline returns the cycle and scheduler settings.
func (c *Config) Pipeline() pipeline.Config {
	r := c.Replenishment
	return pipeline.Config{
		Interval:         r.CheckInterval,
		MaxCycleDuration: r.MaxCycleDuration,
		SalesWindowDays:  r.SalesWindowDays,
		WorkerCount:      r.WorkerCount,
		BackoffInitial:   r.BackoffInitial,
		BackoffMax:       r.BackoffMax,
		LockTTL:          r.LockTTL,
	}
}
