package replenishment

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// SupplierWeights are the weights of the supplier score components.
type SupplierWeights struct {
	Rating       float64
	Discount     float64
	Delivery     float64
	PaymentTerms float64

	// DiscountCeiling is the discount rate (percent) that earns the full
	// discount component.
	DiscountCeiling float64
	// DeliveryHorizonDays is the delivery time at which the delivery
	// component drops to zero.
	DeliveryHorizonDays float64
}

// Policy holds the tunable constants of the decision engine.
type Policy struct {
	ForecastMonths     int
	SafetyStockFactor  float64
	PeakQuantityBoost  float64
	UrgencyMultipliers map[domain.Priority]float64
	// CriticalHighMultiplier replaces the HIGH multiplier during critical months.
	CriticalHighMultiplier float64
	RoundingThreshold      int
	RoundingStep           int
	CapacityCeilingFactor  float64

	ConfidenceBase            float64
	ConfidenceHistoryBonus    float64
	ConfidencePeakBonus       float64
	ConfidenceEscalationBonus float64
	ConfidenceSupplierBonus   float64
	ConfidenceCap             float64
	TopSupplierRating         float64 // on the 0-5 scale

	MaxAutoOrderValue    float64
	AutoApproveThreshold float64
	CriticalMonths       []int

	Supplier SupplierWeights
}

// DefaultPolicy returns the stock heuristic constants.
func DefaultPolicy() Policy {
	return Policy{
		ForecastMonths:    3,
		SafetyStockFactor: 1.5,
		PeakQuantityBoost: 0.2,
		UrgencyMultipliers: map[domain.Priority]float64{
			domain.PriorityEmergency: 1.5,
			domain.PriorityUrgent:    1.3,
			domain.PriorityHigh:      1.1,
			domain.PriorityMedium:    1.0,
			domain.PriorityLow:       0.8,
		},
		CriticalHighMultiplier: 1.3,
		RoundingThreshold:      100,
		RoundingStep:           10,
		CapacityCeilingFactor:  2,

		ConfidenceBase:            0.70,
		ConfidenceHistoryBonus:    0.10,
		ConfidencePeakBonus:       0.05,
		ConfidenceEscalationBonus: 0.10,
		ConfidenceSupplierBonus:   0.10,
		ConfidenceCap:             0.95,
		TopSupplierRating:         4.5,

		MaxAutoOrderValue:    5000,
		AutoApproveThreshold: 0.85,
		CriticalMonths:       []int{1, 6, 7, 8},

		Supplier: SupplierWeights{
			Rating:              0.40,
			Discount:            0.25,
			Delivery:            0.20,
			PaymentTerms:        0.15,
			DiscountCeiling:     20,
			DeliveryHorizonDays: 10,
		},
	}
}

// Validate checks the policy for values the engine cannot work with.
func (p Policy) Validate() error {
	var errs []error
	if p.ForecastMonths < 1 || p.ForecastMonths > 12 {
		errs = append(errs, fmt.Errorf("forecast months must be within 1-12, got %d", p.ForecastMonths))
	}
	if p.SafetyStockFactor < 0 {
		errs = append(errs, fmt.Errorf("safety stock factor cannot be negative, got %v", p.SafetyStockFactor))
	}
	if p.PeakQuantityBoost < 0 {
		errs = append(errs, fmt.Errorf("peak quantity boost cannot be negative, got %v", p.PeakQuantityBoost))
	}
	for _, tier := range []domain.Priority{
		domain.PriorityEmergency, domain.PriorityUrgent, domain.PriorityHigh,
		domain.PriorityMedium, domain.PriorityLow,
	} {
		m, ok := p.UrgencyMultipliers[tier]
		if !ok {
			errs = append(errs, fmt.Errorf("missing urgency multiplier for %s", tier))
			continue
		}
		if m <= 0 {
			errs = append(errs, fmt.Errorf("urgency multiplier for %s must be positive, got %v", tier, m))
		}
	}
	if p.RoundingStep < 1 {
		errs = append(errs, fmt.Errorf("rounding step must be positive, got %d", p.RoundingStep))
	}
	if p.CapacityCeilingFactor <= 0 {
		errs = append(errs, fmt.Errorf("capacity ceiling factor must be positive, got %v", p.CapacityCeilingFactor))
	}
	if p.ConfidenceCap < 0 || p.ConfidenceCap > 1 {
		errs = append(errs, fmt.Errorf("confidence cap must be within [0,1], got %v", p.ConfidenceCap))
	}
	if p.AutoApproveThreshold < 0 || p.AutoApproveThreshold > 1 {
		errs = append(errs, fmt.Errorf("auto approve threshold must be within [0,1], got %v", p.AutoApproveThreshold))
	}
	if p.MaxAutoOrderValue < 0 {
		errs = append(errs, fmt.Errorf("max auto order value cannot be negative, got %v", p.MaxAutoOrderValue))
	}
	for _, m := range p.CriticalMonths {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("critical month must be within 1-12, got %d", m))
		}
	}
	if p.Supplier.DiscountCeiling <= 0 || p.Supplier.DeliveryHorizonDays <= 0 {
		errs = append(errs, errors.New("supplier discount ceiling and delivery horizon must be positive"))
	}
	return errors.Join(errs...)
}

func (p Policy) urgencyMultiplier(tier domain.Priority, criticalPeriod bool) float64 {
	if tier == domain.PriorityHigh && criticalPeriod {
		return p.CriticalHighMultiplier
	}
	if m, ok := p.UrgencyMultipliers[tier]; ok {
		return m
	}
	return 1.0
}

func (p Policy) isCriticalMonth(month int) bool {
	for _, m := range p.CriticalMonths {
		if m == month {
			return true
		}
	}
	return false
}
