// Package explain turns a restock decision into a short human-readable
// summary using an LLM.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/restock-engine/internal/explain/llm"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
)

const systemPrompt = `You are an inventory planning assistant for an office supplies distributor.
You receive a restock decision that has already been made by a rule engine, with the
numbers behind it. Explain the decision to a purchasing manager in at most three
sentences. Do not change or second-guess the numbers. Do not invent suppliers,
quantities or dates. Plain text, no markdown, no bullet points.`

const maxSummaryLen = 600

// ErrEmptySummary is returned when the model produced no usable text.
var ErrEmptySummary = errors.New("explain: empty summary")

// Generator is the subset of llm.Client the summarizer needs.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

type Summarizer struct {
	gen       Generator
	model     string
	maxTokens int
}

var _ replenishment.ExplanationGenerator = (*Summarizer)(nil)

func NewSummarizer(gen Generator, model string, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Summarizer{gen: gen, model: model, maxTokens: maxTokens}
}

func (s *Summarizer) Summarize(ctx context.Context, ec replenishment.ExplanationContext) (string, error) {
	resp, err := s.gen.Generate(ctx, llm.GenerateRequest{
		Model:       s.model,
		System:      systemPrompt,
		Prompt:      BuildPrompt(ec),
		Temperature: 0.2,
		MaxTokens:   s.maxTokens,
		SKU:         ec.Item.SKU,
	})
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", ec.Item.SKU, err)
	}

	summary := clean(resp.Content)
	if summary == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

// BuildPrompt renders the decision facts the model is allowed to use.
func BuildPrompt(ec replenishment.ExplanationContext) string {
	var b strings.Builder
	item, d := ec.Item, ec.Decision

	fmt.Fprintf(&b, "Item: %s (%s), category %s\n", item.SKU, item.Name, item.Category)
	fmt.Fprintf(&b, "Stock: %d on hand, minimum %d, capacity %d, unit cost %.2f, lead time %d days\n",
		item.CurrentStock, item.MinStockThreshold, item.MaxStockCapacity, item.UnitCost, item.LeadTimeDays)

	b.WriteString("\nDemand:\n")
	fmt.Fprintf(&b, "- base monthly demand %.1f (from history: %t)\n", ec.Forecast.BaseDemand, ec.Forecast.FromHistory)
	fmt.Fprintf(&b, "- seasonal multiplier now %.2f, peak month: %t\n", ec.Forecast.CurrentMultiplier, ec.Forecast.IsPeakNow)
	if len(ec.Forecast.Predictions) > 0 {
		b.WriteString("- next months:")
		for _, p := range ec.Forecast.Predictions {
			fmt.Fprintf(&b, " M%d=%.0f", p.Month, p.Quantity)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRisk:\n")
	fmt.Fprintf(&b, "- tier %s, days until stockout %s, daily consumption %.2f (%s)\n",
		ec.Risk.Tier, ec.Risk.DaysUntilStockout, ec.Risk.DailyConsumption, ec.Risk.ConsumptionSource)
	if ec.Risk.RuleText != "" {
		fmt.Fprintf(&b, "- rule: %s\n", ec.Risk.RuleText)
	}
	if ec.Risk.CriticalPeriod {
		b.WriteString("- inside a critical business period\n")
	}

	b.WriteString("\nDecision:\n")
	fmt.Fprintf(&b, "- action %s, priority %s, quantity %d, estimated cost %.2f\n",
		d.ActionType, d.Priority, d.RecommendedQuantity, d.EstimatedCost)
	if sup := ec.Selection.Selected; sup != nil {
		fmt.Fprintf(&b, "- supplier %s (%s), score %.2f, delivery in %d days\n",
			sup.ID, sup.Name, ec.Selection.Score, d.ExpectedDeliveryDays)
	} else {
		b.WriteString("- no supplier carries this category\n")
	}
	fmt.Fprintf(&b, "- confidence %.2f, approval %s\n", d.ConfidenceScore, d.ApprovalStatus)
	if len(ec.Quantity.Rules) > 0 {
		fmt.Fprintf(&b, "- sizing: %s\n", ec.Quantity.Reasoning())
	}
	if ec.Quantity.CapacityConflict {
		b.WriteString("- capacity limit forced the order below the supplier minimum\n")
	}

	return b.String()
}

// clean collapses the model output into a single bounded line.
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSummaryLen {
		s = strings.TrimSpace(s[:maxSummaryLen])
	}
	return s
}
