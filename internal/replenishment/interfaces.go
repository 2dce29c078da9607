package replenishment

import (
	"context"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// Sink receives the cycle's output. Publishing is fire-and-forget from the
// engine's point of view: errors are logged and never stop the cycle.
type Sink interface {
	PublishDecision(ctx context.Context, d domain.Decision) error
	PublishAlert(ctx context.Context, a domain.Alert) error
}

// ExplanationContext is everything a generator gets to explain a decision.
type ExplanationContext struct {
	Item      domain.InventoryItem `json:"item"`
	Decision  domain.Decision      `json:"decision"`
	Forecast  DemandForecast       `json:"forecast"`
	Risk      RiskAssessment       `json:"risk"`
	Quantity  OrderQuantity        `json:"quantity"`
	Selection SupplierSelection    `json:"selection"`
}

// ExplanationGenerator optionally produces a human-readable summary of a
// decision. The deterministic reasoning is always valid without it.
type ExplanationGenerator interface {
	Summarize(ctx context.Context, ec ExplanationContext) (string, error)
}
