package replenishment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func TestSeasonalCatalog_MultiplierProperty(t *testing.T) {
	c := DefaultSeasonalCatalog()
	categories := append(c.Categories(), "UNMAPPED_CATEGORY")

	for _, category := range categories {
		pattern := c.PatternFor(category)
		for month := 1; month <= 12; month++ {
			m := c.MultiplierFor(category, month)
			assert.GreaterOrEqual(t, m, 1.0, "%s month %d", category, month)
			if pattern.IsPeak(month) {
				assert.Equal(t, pattern.DemandMultiplier, m, "%s month %d", category, month)
				assert.True(t, c.IsPeak(category, month))
			} else {
				assert.Equal(t, 1.0, m, "%s month %d", category, month)
				assert.False(t, c.IsPeak(category, month))
			}
		}
	}
}

func TestSeasonalCatalog_DefaultPattern(t *testing.T) {
	c := DefaultSeasonalCatalog()

	p := c.PatternFor("GARDEN_TOOLS")
	assert.Equal(t, []int{6, 7}, p.PeakMonths)
	assert.Equal(t, 1.5, p.DemandMultiplier)
	assert.Equal(t, 0, p.LeadTimeAdjustment)
	assert.False(t, c.Known("GARDEN_TOOLS"))

	assert.Equal(t, 1.5, c.MultiplierFor("GARDEN_TOOLS", 6))
	assert.Equal(t, 1.0, c.MultiplierFor("GARDEN_TOOLS", 8))
}

func TestSeasonalCatalog_CategoryNormalization(t *testing.T) {
	c := DefaultSeasonalCatalog()

	assert.True(t, c.Known("Writing Instruments"))
	assert.True(t, c.Known("writing-instruments"))
	assert.Equal(t, 1.8, c.MultiplierFor("writing instruments", 6))
}

func TestNewSeasonalCatalog_Validation(t *testing.T) {
	tests := []struct {
		name    string
		pattern domain.SeasonalPattern
	}{
		{"multiplier below one", domain.SeasonalPattern{Category: "A", PeakMonths: []int{1}, DemandMultiplier: 0.9}},
		{"month out of range", domain.SeasonalPattern{Category: "A", PeakMonths: []int{13}, DemandMultiplier: 1.2}},
		{"month zero", domain.SeasonalPattern{Category: "A", PeakMonths: []int{0}, DemandMultiplier: 1.2}},
		{"empty category", domain.SeasonalPattern{Category: " ", PeakMonths: []int{1}, DemandMultiplier: 1.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeasonalCatalog([]domain.SeasonalPattern{tt.pattern})
			assert.Error(t, err)
		})
	}
}

func TestNewSeasonalCatalog_CopiesPeakMonths(t *testing.T) {
	months := []int{9, 1}
	c, err := NewSeasonalCatalog([]domain.SeasonalPattern{
		{Category: "custom", PeakMonths: months, DemandMultiplier: 1.1},
	})
	require.NoError(t, err)

	months[0] = 5
	assert.Equal(t, []int{1, 9}, c.PatternFor("CUSTOM").PeakMonths)
	assert.False(t, c.IsPeak("CUSTOM", 5))
}
