package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockoutDays_JSON(t *testing.T) {
	tests := []struct {
		days StockoutDays
		json string
	}{
		{0, `0`},
		{17, `17`},
		{StockoutUnknown, `"unknown"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.days)
		require.NoError(t, err)
		assert.Equal(t, tt.json, string(b))

		var got StockoutDays
		require.NoError(t, json.Unmarshal(b, &got))
		assert.Equal(t, tt.days, got)
	}

	var d StockoutDays
	require.NoError(t, json.Unmarshal([]byte(`"12"`), &d))
	assert.Equal(t, StockoutDays(12), d)
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestStockoutDays_InAlert(t *testing.T) {
	b, err := json.Marshal(Alert{SKU: "A", DaysUntilStockout: StockoutUnknown, Tier: PriorityMedium})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"days_until_stockout":"unknown"`)
	assert.Contains(t, string(b), `"alert_tier":"MEDIUM"`)
	assert.Equal(t, "unknown", StockoutUnknown.String())
	assert.Equal(t, "5", StockoutDays(5).String())
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority(" urgent ")
	assert.True(t, ok)
	assert.Equal(t, PriorityUrgent, p)

	_, ok = ParsePriority("critical")
	assert.False(t, ok)

	assert.Less(t, PriorityLow.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityUrgent.Rank())
	assert.Less(t, PriorityUrgent.Rank(), PriorityEmergency.Rank())
	assert.Equal(t, -1, Priority("NOPE").Rank())

	assert.True(t, PriorityEmergency.Escalated())
	assert.True(t, PriorityUrgent.Escalated())
	assert.False(t, PriorityHigh.Escalated())
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, "WRITING_INSTRUMENTS", NormalizeCategory(" Writing instruments"))
	assert.Equal(t, "PAPER_PRODUCTS", NormalizeCategory("paper-products"))
}

func TestSupplierProfile_NormalizedRating(t *testing.T) {
	assert.Equal(t, 4.5, SupplierProfile{ReliabilityScore: 9}.NormalizedRating())
	assert.Equal(t, 4.5, SupplierProfile{ReliabilityScore: 9, RatingScale: 10}.NormalizedRating())
	assert.Equal(t, 4.8, SupplierProfile{ReliabilityScore: 4.8, RatingScale: 5}.NormalizedRating())

	s := SupplierProfile{Specialties: []string{"Art Supplies", "PAPER"}}
	assert.True(t, s.Supplies("ART_SUPPLIES"))
	assert.False(t, s.Supplies("NOTEBOOKS"))
}
