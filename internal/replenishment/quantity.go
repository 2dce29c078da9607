package replenishment

import (
	"fmt"
	"math"
	"strings"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// OrderQuantity is the OrderQuantityCalculator output.
type OrderQuantity struct {
	Quantity int      `json:"quantity"`
	Rules    []string `json:"rules"`
	// CapacityConflict is set when the capacity ceiling cut the order below the
	// supplier's minimum order quantity.
	CapacityConflict bool `json:"capacity_conflict"`
}

// Reasoning joins the rules that fired while sizing the order.
func (q OrderQuantity) Reasoning() string {
	return strings.Join(q.Rules, ", ")
}

// QuantityCalculator sizes restock orders.
type QuantityCalculator struct {
	policy Policy
}

func NewQuantityCalculator(policy Policy) *QuantityCalculator {
	return &QuantityCalculator{policy: policy}
}

// Calculate sizes the order for item. supplier may be nil.
func (c *QuantityCalculator) Calculate(item domain.InventoryItem, forecast DemandForecast, risk RiskAssessment, supplier *domain.SupplierProfile) OrderQuantity {
	out := OrderQuantity{}

	// 1. Demand over the forecast horizon plus safety stock, net of stock on hand
	total := forecast.TotalPredicted()
	safetyStock := float64(item.MinStockThreshold) * c.policy.SafetyStockFactor
	raw := math.Max(0, total+safetyStock-float64(item.CurrentStock))
	out.Rules = append(out.Rules, fmt.Sprintf("demand %.1f + safety stock %.1f - stock %d = %.1f",
		total, safetyStock, item.CurrentStock, raw))

	// 2. Urgency multiplier
	multiplier := c.policy.urgencyMultiplier(risk.Tier, risk.CriticalPeriod)
	adjusted := raw * multiplier
	if raw > 0 {
		out.Rules = append(out.Rules, fmt.Sprintf("%s urgency x%.2f", risk.Tier, multiplier))
	}

	// 3. Peak season boost, applied after the urgency multiplier
	if forecast.IsPeakNow && adjusted > 0 {
		adjusted *= 1 + c.policy.PeakQuantityBoost
		out.Rules = append(out.Rules, fmt.Sprintf("peak season +%.0f%%", c.policy.PeakQuantityBoost*100))
	}

	moq := 0
	if supplier != nil {
		moq = supplier.MinOrderQuantity
	}

	// 4. An emergency always orders something
	if adjusted <= 0 && risk.Tier == domain.PriorityEmergency {
		floor := moq
		if supplier == nil {
			floor = item.MinStockThreshold
		}
		if floor < 1 {
			floor = 1
		}
		adjusted = float64(floor)
		out.Rules = append(out.Rules, fmt.Sprintf("emergency floor %d", floor))
	}

	// 5. Supplier minimum order quantity
	if adjusted > 0 && adjusted < float64(moq) {
		adjusted = float64(moq)
		out.Rules = append(out.Rules, fmt.Sprintf("raised to supplier minimum %d", moq))
	}

	// 6. Rounding
	qty := c.round(adjusted)
	if qty > 0 && qty < moq {
		qty = c.roundUp(moq)
	}
	if qty > c.policy.RoundingThreshold {
		out.Rules = append(out.Rules, fmt.Sprintf("rounded to nearest %d", c.policy.RoundingStep))
	}

	// 7. Capacity ceiling
	ceiling := int(math.Floor(c.policy.CapacityCeilingFactor * float64(item.MaxStockCapacity)))
	if qty > ceiling {
		qty = ceiling
		out.Rules = append(out.Rules, fmt.Sprintf("capped at %.0fx capacity %d", c.policy.CapacityCeilingFactor, ceiling))
		if qty < moq {
			out.CapacityConflict = true
			out.Rules = append(out.Rules, fmt.Sprintf("capacity ceiling below supplier minimum %d", moq))
		}
	}

	out.Quantity = qty
	out.Rules = append(out.Rules, fmt.Sprintf("final quantity %d", qty))
	return out
}

// round ceils small quantities and rounds larger ones half-up to the rounding
// step. The 6-decimal pre-round keeps float noise such as 120.0000000001 from
// ceiling up a whole unit.
func (c *QuantityCalculator) round(v float64) int {
	if v <= 0 {
		return 0
	}
	v = roundFloat(v, 6)
	if v <= float64(c.policy.RoundingThreshold) {
		return int(math.Ceil(v))
	}
	step := float64(c.policy.RoundingStep)
	return int(math.Floor(v/step+0.5) * step)
}

// roundUp returns the smallest quantity at or above v that round keeps stable.
func (c *QuantityCalculator) roundUp(v int) int {
	if v <= c.policy.RoundingThreshold {
		return v
	}
	step := c.policy.RoundingStep
	return ((v + step - 1) / step) * step
}
