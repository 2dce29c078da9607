package replenishment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// GateInput bundles the upstream outputs the DecisionGate assembles.
type GateInput struct {
	CycleID   string
	AsOf      time.Time
	Item      domain.InventoryItem
	Forecast  DemandForecast
	Risk      RiskAssessment
	Quantity  OrderQuantity
	Selection SupplierSelection
}

// DecisionGate builds decisions and routes them to auto-approval or review.
type DecisionGate struct {
	policy Policy
}

func NewDecisionGate(policy Policy) *DecisionGate {
	return &DecisionGate{policy: policy}
}

// Decide assembles the Decision for one item.
func (g *DecisionGate) Decide(in GateInput) domain.Decision {
	d := domain.Decision{
		ID:                  recordID(in.CycleID, "decision", in.Item.SKU),
		CycleID:             in.CycleID,
		SKU:                 in.Item.SKU,
		Priority:            in.Risk.Tier,
		RecommendedQuantity: in.Quantity.Quantity,
		CreatedAt:           in.AsOf,
	}

	if d.RecommendedQuantity > 0 || in.Risk.Tier == domain.PriorityEmergency {
		d.ActionType = domain.ActionRestock
	} else {
		d.ActionType = domain.ActionHold
	}

	supplier := in.Selection.Selected
	if supplier != nil {
		id := supplier.ID
		d.SupplierID = &id
	}

	d.EstimatedCost = g.estimatedCost(d.RecommendedQuantity, in.Item.UnitCost, supplier)

	confidence, contributors := g.confidence(in)
	d.ConfidenceScore = confidence

	reasons := g.approvalReasons(d, in)
	d.RequiresApproval = len(reasons) > 0
	switch {
	case d.RequiresApproval:
		d.ApprovalStatus = domain.ApprovalPending
	case d.ActionType == domain.ActionRestock:
		d.ApprovalStatus = domain.ApprovalAutoApproved
	default:
		d.ApprovalStatus = domain.ApprovalNotRequired
	}

	d.ExpectedDeliveryDays = expectedDeliveryDays(in.Item, in.Forecast, supplier)
	d.Reasoning = reasoning(in, contributors, reasons)
	return d
}

func (g *DecisionGate) estimatedCost(qty int, unitCost float64, supplier *domain.SupplierProfile) float64 {
	cost := decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(unitCost))
	if supplier != nil && supplier.DiscountRate > 0 {
		discount := decimal.NewFromFloat(supplier.DiscountRate).Div(decimal.NewFromInt(100))
		cost = cost.Mul(decimal.NewFromInt(1).Sub(discount))
	}
	if cost.IsNegative() {
		return 0
	}
	return cost.Round(2).InexactFloat64()
}

func (g *DecisionGate) confidence(in GateInput) (float64, []string) {
	p := g.policy
	score := p.ConfidenceBase
	contributors := []string{fmt.Sprintf("base %.2f", p.ConfidenceBase)}

	if in.Forecast.FromHistory {
		score += p.ConfidenceHistoryBonus
		contributors = append(contributors, fmt.Sprintf("sales history +%.2f", p.ConfidenceHistoryBonus))
	}
	if in.Forecast.IsPeakNow {
		score += p.ConfidencePeakBonus
		contributors = append(contributors, fmt.Sprintf("peak season +%.2f", p.ConfidencePeakBonus))
	}
	if in.Risk.Tier.Escalated() {
		score += p.ConfidenceEscalationBonus
		contributors = append(contributors, fmt.Sprintf("%s tier +%.2f", in.Risk.Tier, p.ConfidenceEscalationBonus))
	}
	if s := in.Selection.Selected; s != nil && s.NormalizedRating() >= p.TopSupplierRating {
		score += p.ConfidenceSupplierBonus
		contributors = append(contributors, fmt.Sprintf("top rated supplier +%.2f", p.ConfidenceSupplierBonus))
	}

	score = clamp(roundFloat(score, 2), 0, p.ConfidenceCap)
	return score, contributors
}

func (g *DecisionGate) approvalReasons(d domain.Decision, in GateInput) []string {
	var reasons []string
	if d.EstimatedCost > g.policy.MaxAutoOrderValue {
		reasons = append(reasons, fmt.Sprintf("cost %.2f above auto order limit %.2f", d.EstimatedCost, g.policy.MaxAutoOrderValue))
	}
	if d.ConfidenceScore < g.policy.AutoApproveThreshold {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below %.2f", d.ConfidenceScore, g.policy.AutoApproveThreshold))
	}
	if in.Risk.Tier.Escalated() {
		reasons = append(reasons, fmt.Sprintf("%s priority", in.Risk.Tier))
	}
	if !in.Selection.Found() {
		reasons = append(reasons, "no supplier found")
	}
	if in.Quantity.CapacityConflict {
		reasons = append(reasons, "capacity ceiling below supplier minimum")
	}
	return reasons
}

func expectedDeliveryDays(item domain.InventoryItem, forecast DemandForecast, supplier *domain.SupplierProfile) int {
	days := item.LeadTimeDays
	if supplier != nil {
		days = int(math.Ceil(supplier.AverageLeadTimeDays))
	}
	if forecast.IsPeakNow {
		days += forecast.LeadTimeAdjustment
	}
	if days < 0 {
		return 0
	}
	return days
}

func reasoning(in GateInput, contributors, approval []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Classification: %s (rule %d: %s).", in.Risk.Tier, in.Risk.Rule, in.Risk.RuleText)
	fmt.Fprintf(&b, " Quantity: %s.", in.Quantity.Reasoning())

	if s := in.Selection.Selected; s != nil {
		fmt.Fprintf(&b, " Supplier: %s (%s), score %.3f of %d candidates, rating %.1f/5, discount %.1f%%, lead time %.1f days, %s.",
			s.ID, s.Name, in.Selection.Score, len(in.Selection.Ranked), s.NormalizedRating(), s.DiscountRate, s.AverageLeadTimeDays, s.PaymentTerms)
	} else {
		fmt.Fprintf(&b, " Supplier: none carries %s.", domain.NormalizeCategory(in.Item.Category))
	}

	fmt.Fprintf(&b, " Confidence: %s.", strings.Join(contributors, ", "))

	if len(approval) > 0 {
		fmt.Fprintf(&b, " Approval required: %s.", strings.Join(approval, "; "))
	} else {
		b.WriteString(" Approval: not required.")
	}
	return b.String()
}

// recordID derives a stable id so re-running a cycle on the same snapshot
// yields the same records.
func recordID(cycleID, kind, sku string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(cycleID+"/"+kind+"/"+sku)).String()
}
