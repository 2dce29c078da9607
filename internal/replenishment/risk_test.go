package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func TestRiskClassifier_Rules(t *testing.T) {
	analyzer := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	classifier := NewRiskClassifier(DefaultPolicy())

	// OFFICE_SUPPLIES peaks in January and September. March is neither peak
	// nor critical, June is critical but not peak.
	march := date(2024, time.March, 15)
	june := date(2024, time.June, 15)
	september := date(2024, time.September, 16)

	tests := []struct {
		name      string
		stock     int
		perDay    int
		asOf      time.Time
		tier      domain.Priority
		threshold domain.ThresholdType
		rule      int
		days      domain.StockoutDays
		alert     bool
	}{
		{"out of stock", 0, 10, march, domain.PriorityEmergency, domain.ThresholdOutOfStock, 1, 0, true},
		{"within lead time", 50, 10, march, domain.PriorityHigh, domain.ThresholdCritical, 2, 5, true},
		{"within lead time in critical month", 50, 10, june, domain.PriorityEmergency, domain.ThresholdCritical, 2, 5, true},
		{"within 1.5x lead time", 120, 10, march, domain.PriorityHigh, domain.ThresholdCritical, 3, 12, true},
		{"peak within 2x lead time", 180, 10, september, domain.PriorityHigh, domain.ThresholdSeasonalPrep, 4, 18, true},
		{"off-peak within 2x lead time", 180, 10, march, domain.PriorityMedium, domain.ThresholdMinimum, 5, 18, true},
		{"within 3x lead time", 250, 10, march, domain.PriorityMedium, domain.ThresholdMinimum, 5, 25, true},
		{"healthy", 400, 10, march, domain.PriorityLow, "", 6, 40, false},
		{"healthy in peak season", 400, 10, september, domain.PriorityMedium, domain.ThresholdSeasonalPrep, 6, 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := domain.InventoryItem{
				SKU: "OFF-1", Category: "OFFICE_SUPPLIES", CurrentStock: tt.stock,
				MinStockThreshold: 30, MaxStockCapacity: 600, LeadTimeDays: 10,
			}
			sales := dailySales(item.SKU, tt.perDay, 30, tt.asOf)
			month := int(tt.asOf.Month())

			r := classifier.Classify(item, analyzer.Analyze(item, sales, month), sales, 30, month)

			assert.Equal(t, tt.tier, r.Tier)
			assert.Equal(t, tt.threshold, r.ThresholdType)
			assert.Equal(t, tt.rule, r.Rule)
			assert.Equal(t, tt.days, r.DaysUntilStockout)
			assert.Equal(t, tt.alert, r.RaisesAlert)
			assert.Equal(t, ConsumptionFromSales, r.ConsumptionSource)
			assert.InDelta(t, float64(tt.perDay), r.DailyConsumption, 1e-9)
		})
	}
}

func TestRiskClassifier_ThresholdFallback(t *testing.T) {
	analyzer := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	classifier := NewRiskClassifier(DefaultPolicy())
	item := domain.InventoryItem{
		SKU: "OFF-2", Category: "OFFICE_SUPPLIES", CurrentStock: 5,
		MinStockThreshold: 30, MaxStockCapacity: 100, LeadTimeDays: 10,
	}

	r := classifier.Classify(item, analyzer.Analyze(item, nil, 3), nil, 0, 3)

	assert.Equal(t, ConsumptionFromThreshold, r.ConsumptionSource)
	assert.InDelta(t, 1.0, r.DailyConsumption, 1e-9)
	assert.Equal(t, domain.StockoutDays(5), r.DaysUntilStockout)
	assert.Equal(t, 2, r.Rule)
}

func TestRiskClassifier_SparseHistorySpreadsOverWindow(t *testing.T) {
	analyzer := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	classifier := NewRiskClassifier(DefaultPolicy())
	asOf := date(2024, time.March, 15)
	item := domain.InventoryItem{
		SKU: "FIL-9", Category: "FILING_STORAGE", CurrentStock: 500,
		MinStockThreshold: 20, MaxStockCapacity: 1000, LeadTimeDays: 7,
	}
	sales := []domain.SalesRecord{{SKU: item.SKU, Date: asOf.AddDate(0, 0, -1), QuantitySold: 100}}

	tests := []struct {
		name   string
		window int
		daily  float64
		days   domain.StockoutDays
		tier   domain.Priority
	}{
		{"ninety day window", 90, 100.0 / 90, 450, domain.PriorityLow},
		{"thirty day window", 30, 100.0 / 30, 150, domain.PriorityLow},
		{"no window uses record span", 0, 100, 5, domain.PriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := classifier.Classify(item, analyzer.Analyze(item, sales, 3), sales, tt.window, 3)

			assert.Equal(t, ConsumptionFromSales, r.ConsumptionSource)
			assert.InDelta(t, tt.daily, r.DailyConsumption, 1e-9)
			assert.Equal(t, tt.days, r.DaysUntilStockout)
			assert.Equal(t, tt.tier, r.Tier)
		})
	}
}

func TestRiskClassifier_ZeroSalesUsesThresholdEstimate(t *testing.T) {
	analyzer := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	classifier := NewRiskClassifier(DefaultPolicy())
	item := domain.InventoryItem{
		SKU: "OFF-3", Category: "OFFICE_SUPPLIES", CurrentStock: 5,
		MinStockThreshold: 30, MaxStockCapacity: 100, LeadTimeDays: 10,
	}
	sales := dailySales(item.SKU, 0, 30, date(2024, time.March, 15))

	r := classifier.Classify(item, analyzer.Analyze(item, sales, 3), sales, 30, 3)

	assert.Equal(t, ConsumptionFromThreshold, r.ConsumptionSource)
	assert.InDelta(t, 1.0, r.DailyConsumption, 1e-9)
}

func TestRiskClassifier_UnknownStockout(t *testing.T) {
	analyzer := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	classifier := NewRiskClassifier(DefaultPolicy())
	item := domain.InventoryItem{
		SKU: "OFF-4", Category: "OFFICE_SUPPLIES", CurrentStock: 3,
		MinStockThreshold: 0, MaxStockCapacity: 100, LeadTimeDays: 10,
	}

	r := classifier.Classify(item, analyzer.Analyze(item, nil, 3), nil, 0, 3)
	assert.Equal(t, domain.StockoutUnknown, r.DaysUntilStockout)
	assert.False(t, r.DaysUntilStockout.Known())
	assert.Equal(t, domain.PriorityLow, r.Tier, "unknown stockout never matches a days rule")
	assert.False(t, r.RaisesAlert)

	r = classifier.Classify(item, analyzer.Analyze(item, nil, 9), nil, 0, 9)
	assert.Equal(t, domain.PriorityMedium, r.Tier)
	assert.Equal(t, domain.ThresholdSeasonalPrep, r.ThresholdType)
	assert.Equal(t, domain.StockoutUnknown, r.DaysUntilStockout)
}

func TestRiskClassifier_KnownDaysStayBelowSentinel(t *testing.T) {
	assert.Equal(t, domain.StockoutDays(998), daysUntilStockout(1_000_000, 0.5))
	assert.Equal(t, domain.StockoutDays(3), daysUntilStockout(10, 3))
	assert.Equal(t, domain.StockoutUnknown, daysUntilStockout(10, 0))
}

func TestRiskAssessment_Alert(t *testing.T) {
	at := date(2024, time.March, 15)
	r := RiskAssessment{Tier: domain.PriorityHigh, ThresholdType: domain.ThresholdCritical, DaysUntilStockout: 4, RaisesAlert: true}

	a := r.Alert("cycle-1", "SKU-1", at)
	require.NotNil(t, a)
	assert.Equal(t, "SKU-1", a.SKU)
	assert.Equal(t, "cycle-1", a.CycleID)
	assert.Equal(t, domain.PriorityHigh, a.Tier)
	assert.Equal(t, at, a.CreatedAt)
	assert.Equal(t, a.ID, r.Alert("cycle-1", "SKU-1", at).ID)

	assert.Nil(t, RiskAssessment{Tier: domain.PriorityLow}.Alert("cycle-1", "SKU-1", at))
}

func TestTrailingDailyAverage_InclusiveSpan(t *testing.T) {
	sales := []domain.SalesRecord{
		{SKU: "A", Date: date(2024, time.March, 1), QuantitySold: 6},
		{SKU: "A", Date: date(2024, time.March, 3), QuantitySold: 3},
	}
	assert.InDelta(t, 3.0, trailingDailyAverage(sales, 0), 1e-9)
	assert.Equal(t, 0.0, trailingDailyAverage(nil, 0))
}
