// internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// InventoryItem is a stock-keeping unit as seen by the replenishment engine.
// The engine never mutates it; sales and receiving events do.
type InventoryItem struct {
	SKU               string  `json:"sku" db:"sku"`
	Name              string  `json:"name" db:"name"`
	Category          string  `json:"category" db:"category"`
	CurrentStock      int     `json:"current_stock" db:"current_stock"`
	MinStockThreshold int     `json:"min_stock_threshold" db:"min_stock_threshold"`
	MaxStockCapacity  int     `json:"max_stock_capacity" db:"max_stock_capacity"`
	UnitCost          float64 `json:"unit_cost" db:"unit_cost"`
	LeadTimeDays      int     `json:"lead_time_days" db:"lead_time_days"`
}

// SalesRecord is one immutable sales line for a SKU.
type SalesRecord struct {
	SKU          string    `json:"sku" db:"sku"`
	Date         time.Time `json:"date" db:"sale_date"`
	QuantitySold int       `json:"quantity_sold" db:"quantity_sold"`
	Revenue      float64   `json:"revenue" db:"revenue"`
	Channel      string    `json:"channel" db:"channel"`
}

// SupplierProfile describes a supplier in the read-only supplier catalog.
type SupplierProfile struct {
	ID                  string   `json:"id" db:"id"`
	Name                string   `json:"name" db:"name"`
	Specialties         []string `json:"specialties" db:"-"`
	ReliabilityScore    float64  `json:"reliability_score" db:"reliability_score"`
	RatingScale         int      `json:"rating_scale" db:"rating_scale"` // 5 or 10, zero means 10
	AverageLeadTimeDays float64  `json:"average_lead_time_days" db:"average_lead_time_days"`
	MinOrderQuantity    int      `json:"min_order_quantity" db:"min_order_quantity"`
	DiscountRate        float64  `json:"discount_rate" db:"discount_rate"` // percent, 0-100
	PaymentTerms        string   `json:"payment_terms" db:"payment_terms"`
}

// NormalizedRating returns the reliability score on a 0-5 scale.
func (s SupplierProfile) NormalizedRating() float64 {
	scale := s.RatingScale
	if scale <= 0 {
		scale = 10
	}
	return s.ReliabilityScore * 5.0 / float64(scale)
}

// Supplies reports whether the supplier lists category among its specialties.
func (s SupplierProfile) Supplies(category string) bool {
	for _, c := range s.Specialties {
		if NormalizeCategory(c) == NormalizeCategory(category) {
			return true
		}
	}
	return false
}

// SeasonalPattern holds the demand seasonality of a category.
type SeasonalPattern struct {
	Category           string  `json:"category"`
	PeakMonths         []int   `json:"peak_months"`
	DemandMultiplier   float64 `json:"demand_multiplier"`
	LeadTimeAdjustment int     `json:"lead_time_adjustment"`
}

// IsPeak reports whether month is one of the pattern's peak months.
func (p SeasonalPattern) IsPeak(month int) bool {
	for _, m := range p.PeakMonths {
		if m == month {
			return true
		}
	}
	return false
}

// Alert is produced once per cycle for every item whose stock needs attention.
type Alert struct {
	ID                string        `json:"id" db:"id"`
	CycleID           string        `json:"cycle_id" db:"cycle_id"`
	SKU               string        `json:"sku" db:"sku"`
	ThresholdType     ThresholdType `json:"threshold_type" db:"threshold_type"`
	DaysUntilStockout StockoutDays  `json:"days_until_stockout" db:"days_until_stockout"`
	Tier              Priority      `json:"alert_tier" db:"alert_tier"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
}

// Decision is the engine's restock recommendation for one item in one cycle.
type Decision struct {
	ID                   string         `json:"id" db:"id"`
	CycleID              string         `json:"cycle_id" db:"cycle_id"`
	SKU                  string         `json:"sku" db:"sku"`
	ActionType           ActionType     `json:"action_type" db:"action_type"`
	Priority             Priority       `json:"priority" db:"priority"`
	RecommendedQuantity  int            `json:"recommended_quantity" db:"recommended_quantity"`
	SupplierID           *string        `json:"supplier_id" db:"supplier_id"`
	EstimatedCost        float64        `json:"estimated_cost" db:"estimated_cost"`
	ConfidenceScore      float64        `json:"confidence_score" db:"confidence_score"`
	RequiresApproval     bool           `json:"requires_approval" db:"requires_approval"`
	ApprovalStatus       ApprovalStatus `json:"approval_status" db:"approval_status"`
	ExpectedDeliveryDays int            `json:"expected_delivery_days" db:"expected_delivery_days"`
	Reasoning            string         `json:"reasoning" db:"reasoning"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}

// AutoApproved reports whether the decision can be forwarded without a human.
func (d Decision) AutoApproved() bool {
	return d.ApprovalStatus == ApprovalAutoApproved
}

// SummaryMarker separates the deterministic reasoning from an optional
// generated summary.
const SummaryMarker = " Summary: "

// BaseReasoning returns the reasoning without any generated summary.
func (d Decision) BaseReasoning() string {
	if i := strings.Index(d.Reasoning, SummaryMarker); i >= 0 {
		return d.Reasoning[:i]
	}
	return d.Reasoning
}
