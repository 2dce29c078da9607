package replenishment

import (
	"sort"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// MonthlyDemand is the predicted demand of one calendar month.
type MonthlyDemand struct {
	Month    int     `json:"month"`
	Quantity float64 `json:"quantity"`
}

// DemandForecast is the output of the DemandAnalyzer for one item.
type DemandForecast struct {
	Category          string          `json:"category"`
	MonthlyAverages   map[int]float64 `json:"monthly_averages"`
	Predictions       []MonthlyDemand `json:"predictions"`
	IsPeakNow         bool            `json:"is_peak_now"`
	CurrentMultiplier float64         `json:"current_multiplier"`
	BaseDemand        float64         `json:"base_demand"`
	// LeadTimeAdjustment is the pattern's extra lead time in peak months.
	LeadTimeAdjustment int `json:"lead_time_adjustment"`
	// FromHistory is false when the baseline fell back to the item's
	// minimum stock threshold.
	FromHistory bool `json:"from_history"`
}

// TotalPredicted sums the predicted demand over the forecast horizon.
func (f DemandForecast) TotalPredicted() float64 {
	var total float64
	for _, p := range f.Predictions {
		total += p.Quantity
	}
	return total
}

// DemandAnalyzer predicts near-term demand from trailing sales and the
// seasonal catalog.
type DemandAnalyzer struct {
	catalog *SeasonalCatalog
	months  int
}

// NewDemandAnalyzer creates an analyzer forecasting the given number of months.
func NewDemandAnalyzer(catalog *SeasonalCatalog, months int) *DemandAnalyzer {
	if months < 1 {
		months = 3
	}
	return &DemandAnalyzer{catalog: catalog, months: months}
}

// Analyze forecasts demand for item starting at the reference month. Sales are
// assumed to belong to item; the evaluator checks that beforehand.
func (a *DemandAnalyzer) Analyze(item domain.InventoryItem, sales []domain.SalesRecord, month int) DemandForecast {
	forecast := DemandForecast{
		Category:        domain.NormalizeCategory(item.Category),
		MonthlyAverages: monthlyAverages(sales),
	}

	if len(forecast.MonthlyAverages) > 0 {
		// Iterate in month order so the float sum is reproducible.
		months := make([]int, 0, len(forecast.MonthlyAverages))
		for m := range forecast.MonthlyAverages {
			months = append(months, m)
		}
		sort.Ints(months)

		var sum float64
		for _, m := range months {
			sum += forecast.MonthlyAverages[m]
		}
		forecast.BaseDemand = sum / float64(len(months))
		forecast.FromHistory = true
	} else {
		forecast.BaseDemand = float64(item.MinStockThreshold)
	}

	forecast.Predictions = make([]MonthlyDemand, 0, a.months)
	for i := 0; i < a.months; i++ {
		m := monthOffset(month, i)
		forecast.Predictions = append(forecast.Predictions, MonthlyDemand{
			Month:    m,
			Quantity: forecast.BaseDemand * a.catalog.MultiplierFor(item.Category, m),
		})
	}

	pattern := a.catalog.PatternFor(item.Category)
	forecast.IsPeakNow = pattern.IsPeak(month)
	forecast.CurrentMultiplier = a.catalog.MultiplierFor(item.Category, month)
	forecast.LeadTimeAdjustment = pattern.LeadTimeAdjustment
	return forecast
}

// monthlyAverages groups records by month of year and averages quantity sold
// per record.
func monthlyAverages(sales []domain.SalesRecord) map[int]float64 {
	totals := make(map[int]float64)
	counts := make(map[int]int)
	for _, s := range sales {
		m := int(s.Date.Month())
		totals[m] += float64(s.QuantitySold)
		counts[m]++
	}

	out := make(map[int]float64, len(totals))
	for m, total := range totals {
		out[m] = total / float64(counts[m])
	}
	return out
}
