package replenishment

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// DefaultPattern applies to every category without its own entry.
var DefaultPattern = domain.SeasonalPattern{
	Category:           "DEFAULT",
	PeakMonths:         []int{6, 7},
	DemandMultiplier:   1.5,
	LeadTimeAdjustment: 0,
}

// stationeryPatterns is the built-in seasonality table for the distributor's
// categories. Back-to-school (Jun-Aug) and exam seasons drive most peaks.
var stationeryPatterns = []domain.SeasonalPattern{
	{Category: "WRITING_INSTRUMENTS", PeakMonths: []int{6, 7, 8}, DemandMultiplier: 1.8, LeadTimeAdjustment: 3},
	{Category: "PAPER_PRODUCTS", PeakMonths: []int{1, 6, 7, 8}, DemandMultiplier: 1.6, LeadTimeAdjustment: 2},
	{Category: "NOTEBOOKS", PeakMonths: []int{6, 7, 8, 9}, DemandMultiplier: 2.0, LeadTimeAdjustment: 5},
	{Category: "OFFICE_SUPPLIES", PeakMonths: []int{1, 9}, DemandMultiplier: 1.3, LeadTimeAdjustment: 1},
	{Category: "ART_SUPPLIES", PeakMonths: []int{3, 11, 12}, DemandMultiplier: 1.4, LeadTimeAdjustment: 2},
	{Category: "EXAM_MATERIALS", PeakMonths: []int{3, 4, 10, 11}, DemandMultiplier: 1.5, LeadTimeAdjustment: 0},
	{Category: "FILING_STORAGE", PeakMonths: []int{1, 12}, DemandMultiplier: 1.2, LeadTimeAdjustment: 0},
}

// SeasonalCatalog maps categories to seasonal patterns. It is immutable after
// construction and safe for concurrent use.
type SeasonalCatalog struct {
	patterns map[string]domain.SeasonalPattern
	fallback domain.SeasonalPattern
}

// NewSeasonalCatalog validates patterns and builds a catalog. Later entries for
// the same category replace earlier ones.
func NewSeasonalCatalog(patterns []domain.SeasonalPattern) (*SeasonalCatalog, error) {
	c := &SeasonalCatalog{
		patterns: make(map[string]domain.SeasonalPattern, len(patterns)),
		fallback: DefaultPattern,
	}
	for _, p := range patterns {
		key := domain.NormalizeCategory(p.Category)
		if key == "" {
			return nil, fmt.Errorf("seasonal pattern without category")
		}
		if p.DemandMultiplier < 1.0 {
			return nil, fmt.Errorf("seasonal pattern %s: demand multiplier must be >= 1.0, got %v", key, p.DemandMultiplier)
		}
		for _, m := range p.PeakMonths {
			if m < 1 || m > 12 {
				return nil, fmt.Errorf("seasonal pattern %s: peak month must be within 1-12, got %d", key, m)
			}
		}
		p.Category = key
		p.PeakMonths = append([]int(nil), p.PeakMonths...)
		sort.Ints(p.PeakMonths)
		c.patterns[key] = p
	}
	return c, nil
}

// DefaultSeasonalCatalog returns the built-in stationery catalog.
func DefaultSeasonalCatalog() *SeasonalCatalog {
	c, err := NewSeasonalCatalog(stationeryPatterns)
	if err != nil {
		panic(err)
	}
	return c
}

// PatternFor returns the category's pattern, or the default pattern.
func (c *SeasonalCatalog) PatternFor(category string) domain.SeasonalPattern {
	if p, ok := c.patterns[domain.NormalizeCategory(category)]; ok {
		return p
	}
	return c.fallback
}

// Known reports whether category has its own pattern.
func (c *SeasonalCatalog) Known(category string) bool {
	_, ok := c.patterns[domain.NormalizeCategory(category)]
	return ok
}

// MultiplierFor returns the demand multiplier for category in month.
func (c *SeasonalCatalog) MultiplierFor(category string, month int) float64 {
	p := c.PatternFor(category)
	if p.IsPeak(month) {
		return p.DemandMultiplier
	}
	return 1.0
}

// IsPeak reports whether month is a peak month for category.
func (c *SeasonalCatalog) IsPeak(category string, month int) bool {
	return c.PatternFor(category).IsPeak(month)
}

// Categories lists the mapped categories in sorted order.
func (c *SeasonalCatalog) Categories() []string {
	out := make([]string, 0, len(c.patterns))
	for k := range c.patterns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
