package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func TestDemandAnalyzer_FallbackBaseline(t *testing.T) {
	a := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	item := domain.InventoryItem{SKU: "ART-1", Category: "ART_SUPPLIES", MinStockThreshold: 40}

	f := a.Analyze(item, nil, 11)

	assert.False(t, f.FromHistory)
	assert.Equal(t, 40.0, f.BaseDemand)
	assert.Empty(t, f.MonthlyAverages)
	assert.True(t, f.IsPeakNow)
	assert.Equal(t, 1.4, f.CurrentMultiplier)
	assert.Equal(t, 2, f.LeadTimeAdjustment)

	require.Len(t, f.Predictions, 3)
	assert.Equal(t, 11, f.Predictions[0].Month)
	assert.Equal(t, 12, f.Predictions[1].Month)
	assert.Equal(t, 1, f.Predictions[2].Month, "forecast wraps into January")
	assert.InDelta(t, 56.0, f.Predictions[0].Quantity, 1e-9)
	assert.InDelta(t, 56.0, f.Predictions[1].Quantity, 1e-9)
	assert.InDelta(t, 40.0, f.Predictions[2].Quantity, 1e-9)
	assert.InDelta(t, 152.0, f.TotalPredicted(), 1e-9)
}

func TestDemandAnalyzer_MonthlyAverages(t *testing.T) {
	a := NewDemandAnalyzer(DefaultSeasonalCatalog(), 3)
	item := domain.InventoryItem{SKU: "OFF-1", Category: "OFFICE_SUPPLIES", MinStockThreshold: 500}
	sales := []domain.SalesRecord{
		{SKU: "OFF-1", Date: date(2024, time.May, 3), QuantitySold: 4},
		{SKU: "OFF-1", Date: date(2024, time.May, 4), QuantitySold: 6},
		{SKU: "OFF-1", Date: date(2024, time.June, 1), QuantitySold: 10},
	}

	f := a.Analyze(item, sales, 8)

	assert.True(t, f.FromHistory)
	assert.Equal(t, map[int]float64{5: 5, 6: 10}, f.MonthlyAverages)
	assert.InDelta(t, 7.5, f.BaseDemand, 1e-9)
	assert.False(t, f.IsPeakNow)
	assert.Equal(t, 1.0, f.CurrentMultiplier)

	// August, September (peak x1.3), October.
	require.Len(t, f.Predictions, 3)
	assert.InDelta(t, 7.5, f.Predictions[0].Quantity, 1e-9)
	assert.InDelta(t, 9.75, f.Predictions[1].Quantity, 1e-9)
	assert.InDelta(t, 7.5, f.Predictions[2].Quantity, 1e-9)
}

func TestDemandAnalyzer_HorizonDefaults(t *testing.T) {
	a := NewDemandAnalyzer(DefaultSeasonalCatalog(), 0)
	f := a.Analyze(domain.InventoryItem{SKU: "X", Category: "X", MinStockThreshold: 1}, nil, 12)
	require.Len(t, f.Predictions, 3)
	assert.Equal(t, []int{12, 1, 2}, []int{f.Predictions[0].Month, f.Predictions[1].Month, f.Predictions[2].Month})
}
