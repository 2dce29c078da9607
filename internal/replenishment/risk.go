package replenishment

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// ConsumptionSource tells where the daily consumption estimate came from.
type ConsumptionSource string

const (
	ConsumptionFromSales     ConsumptionSource = "sales_history"
	ConsumptionFromThreshold ConsumptionSource = "threshold_estimate"
)

// RiskAssessment is the StockRiskClassifier output for one item.
type RiskAssessment struct {
	Tier              domain.Priority      `json:"tier"`
	ThresholdType     domain.ThresholdType `json:"threshold_type,omitempty"`
	DaysUntilStockout domain.StockoutDays  `json:"days_until_stockout"`
	DailyConsumption  float64              `json:"daily_consumption"`
	ConsumptionSource ConsumptionSource    `json:"consumption_source"`
	// Rule is the 1-based index of the classification rule that matched.
	Rule           int    `json:"rule"`
	RuleText       string `json:"rule_text"`
	CriticalPeriod bool   `json:"critical_period"`
	RaisesAlert    bool   `json:"raises_alert"`
}

// Alert builds the alert record for the assessment, or nil when the
// assessment does not raise one.
func (r RiskAssessment) Alert(cycleID, sku string, at time.Time) *domain.Alert {
	if !r.RaisesAlert {
		return nil
	}
	return &domain.Alert{
		ID:                recordID(cycleID, "alert", sku),
		CycleID:           cycleID,
		SKU:               sku,
		ThresholdType:     r.ThresholdType,
		DaysUntilStockout: r.DaysUntilStockout,
		Tier:              r.Tier,
		CreatedAt:         at,
	}
}

// RiskClassifier turns stock, demand and consumption into an alert tier.
type RiskClassifier struct {
	policy Policy
}

func NewRiskClassifier(policy Policy) *RiskClassifier {
	return &RiskClassifier{policy: policy}
}

// Classify evaluates the fixed rule list in order; the first match wins.
// windowDays is the length of the trailing window sales were read from; zero
// means the records themselves bound the window.
func (c *RiskClassifier) Classify(item domain.InventoryItem, forecast DemandForecast, sales []domain.SalesRecord, windowDays, month int) RiskAssessment {
	r := RiskAssessment{CriticalPeriod: c.policy.isCriticalMonth(month)}

	r.DailyConsumption, r.ConsumptionSource = dailyConsumption(item, forecast, sales, windowDays)
	r.DaysUntilStockout = daysUntilStockout(item.CurrentStock, r.DailyConsumption)

	lead := float64(item.LeadTimeDays)
	days := float64(r.DaysUntilStockout)
	known := r.DaysUntilStockout.Known()

	switch {
	case item.CurrentStock == 0:
		r.Rule, r.Tier, r.ThresholdType = 1, domain.PriorityEmergency, domain.ThresholdOutOfStock
		r.RuleText = "out of stock"
	case known && days <= lead:
		r.Rule, r.Tier, r.ThresholdType = 2, domain.PriorityHigh, domain.ThresholdCritical
		if r.CriticalPeriod {
			r.Tier = domain.PriorityEmergency
		}
		r.RuleText = fmt.Sprintf("stockout in %d days within lead time of %d days", r.DaysUntilStockout, item.LeadTimeDays)
		if r.CriticalPeriod {
			r.RuleText += " during critical period"
		}
	case known && days <= lead*1.5:
		r.Rule, r.Tier, r.ThresholdType = 3, domain.PriorityHigh, domain.ThresholdCritical
		r.RuleText = fmt.Sprintf("stockout in %d days within 1.5x lead time", r.DaysUntilStockout)
	case known && forecast.IsPeakNow && days <= lead*2:
		r.Rule, r.Tier, r.ThresholdType = 4, domain.PriorityHigh, domain.ThresholdSeasonalPrep
		r.RuleText = fmt.Sprintf("peak season and stockout in %d days within 2x lead time", r.DaysUntilStockout)
	case known && days <= lead*3:
		r.Rule, r.Tier, r.ThresholdType = 5, domain.PriorityMedium, domain.ThresholdMinimum
		r.RuleText = fmt.Sprintf("stockout in %d days within 3x lead time", r.DaysUntilStockout)
	case forecast.IsPeakNow:
		r.Rule, r.Tier, r.ThresholdType = 6, domain.PriorityMedium, domain.ThresholdSeasonalPrep
		r.RuleText = fmt.Sprintf("stock covers %s days, preparing for peak season", r.DaysUntilStockout)
	default:
		r.Rule, r.Tier = 6, domain.PriorityLow
		r.RuleText = fmt.Sprintf("stock covers %s days", r.DaysUntilStockout)
	}

	r.RaisesAlert = r.Tier != domain.PriorityLow || r.ThresholdType == domain.ThresholdSeasonalPrep
	return r
}

// dailyConsumption prefers the trailing sales average and falls back to the
// seasonally adjusted threshold estimate when sales show no consumption.
func dailyConsumption(item domain.InventoryItem, forecast DemandForecast, sales []domain.SalesRecord, windowDays int) (float64, ConsumptionSource) {
	if direct := trailingDailyAverage(sales, windowDays); direct > 0 {
		return direct, ConsumptionFromSales
	}
	multiplier := forecast.CurrentMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	return multiplier * float64(item.MinStockThreshold) / 30.0, ConsumptionFromThreshold
}

// trailingDailyAverage divides total units sold by the window length, or by
// the inclusive calendar span of the records when that is longer.
func trailingDailyAverage(sales []domain.SalesRecord, windowDays int) float64 {
	if len(sales) == 0 {
		return 0
	}

	first, last := sales[0].Date, sales[0].Date
	var total float64
	for _, s := range sales {
		total += float64(s.QuantitySold)
		if s.Date.Before(first) {
			first = s.Date
		}
		if s.Date.After(last) {
			last = s.Date
		}
	}

	span := calendarDays(first, last) + 1
	if windowDays > span {
		span = windowDays
	}
	return total / float64(span)
}

func calendarDays(from, to time.Time) int {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// daysUntilStockout floors stock over consumption. Known estimates are capped
// one below the unknown sentinel so they never collide with it.
func daysUntilStockout(stock int, consumption float64) domain.StockoutDays {
	if consumption <= 0 {
		return domain.StockoutUnknown
	}
	days := math.Floor(float64(stock) / consumption)
	if days >= float64(domain.StockoutUnknown) {
		return domain.StockoutUnknown - 1
	}
	return domain.StockoutDays(days)
}
