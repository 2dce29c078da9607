package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func TestDecisionGate_EstimatedCost(t *testing.T) {
	g := NewDecisionGate(DefaultPolicy())
	sp := supplier("S1", "A", 4, 10, 3, 0, "Net 30")

	assert.Equal(t, 270.0, g.estimatedCost(120, 2.5, &sp))
	assert.Equal(t, 300.0, g.estimatedCost(120, 2.5, nil))
	assert.Equal(t, 0.1, g.estimatedCost(1, 0.1, nil))
	assert.Equal(t, 0.0, g.estimatedCost(0, 9.99, &sp))
}

func TestDecisionGate_ConfidenceClamped(t *testing.T) {
	p := DefaultPolicy()
	p.ConfidenceBase = 0.9
	g := NewDecisionGate(p)
	sp := supplier("S1", "A", 5, 10, 3, 0, "Net 30")

	d := g.Decide(GateInput{
		CycleID:   "c1",
		AsOf:      date(2024, time.July, 1),
		Item:      domain.InventoryItem{SKU: "A", Category: "A", UnitCost: 1, LeadTimeDays: 2},
		Forecast:  DemandForecast{FromHistory: true, IsPeakNow: true},
		Risk:      RiskAssessment{Tier: domain.PriorityUrgent},
		Quantity:  OrderQuantity{Quantity: 10},
		Selection: SupplierSelection{Selected: &sp, Score: 0.9, Ranked: []ScoredSupplier{{Supplier: sp, Score: 0.9}}},
	})

	assert.Equal(t, 0.95, d.ConfidenceScore)
	assert.True(t, d.RequiresApproval, "urgent decisions always need approval")
	assert.Equal(t, domain.ActionRestock, d.ActionType)
}

func TestDecisionGate_EmergencyRestocksAtZero(t *testing.T) {
	g := NewDecisionGate(DefaultPolicy())
	d := g.Decide(GateInput{
		CycleID: "c1",
		AsOf:    date(2024, time.July, 1),
		Item:    domain.InventoryItem{SKU: "A", Category: "A", UnitCost: 1, LeadTimeDays: 2},
		Risk:    RiskAssessment{Tier: domain.PriorityEmergency},
	})
	assert.Equal(t, domain.ActionRestock, d.ActionType)
	assert.True(t, d.RequiresApproval)
	assert.Nil(t, d.SupplierID)
}

func TestDecisionGate_CapacityConflictForcesApproval(t *testing.T) {
	g := NewDecisionGate(DefaultPolicy())
	sp := supplier("S1", "A", 5, 10, 3, 700, "Net 15")

	d := g.Decide(GateInput{
		CycleID:   "c1",
		AsOf:      date(2024, time.March, 1),
		Item:      domain.InventoryItem{SKU: "A", Category: "A", UnitCost: 1, LeadTimeDays: 2},
		Forecast:  DemandForecast{FromHistory: true},
		Risk:      RiskAssessment{Tier: domain.PriorityMedium},
		Quantity:  OrderQuantity{Quantity: 600, CapacityConflict: true},
		Selection: SupplierSelection{Selected: &sp},
	})
	assert.True(t, d.RequiresApproval)
	assert.Contains(t, d.Reasoning, "capacity ceiling below supplier minimum")
}

func TestExpectedDeliveryDays(t *testing.T) {
	item := domain.InventoryItem{LeadTimeDays: 4}
	sp := supplier("S1", "A", 5, 10, 2.5, 0, "Net 15")

	assert.Equal(t, 4, expectedDeliveryDays(item, DemandForecast{}, nil))
	assert.Equal(t, 3, expectedDeliveryDays(item, DemandForecast{}, &sp))
	assert.Equal(t, 8, expectedDeliveryDays(item, DemandForecast{IsPeakNow: true, LeadTimeAdjustment: 5}, &sp))
	assert.Equal(t, 0, expectedDeliveryDays(item, DemandForecast{IsPeakNow: true, LeadTimeAdjustment: -9}, nil))
	assert.Equal(t, 4, expectedDeliveryDays(item, DemandForecast{IsPeakNow: false, LeadTimeAdjustment: 5}, nil))
}
