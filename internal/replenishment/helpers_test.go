package replenishment

import (
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 9, 0, 0, 0, time.UTC)
}

// dailySales returns one record per day for the given number of days ending
// the day before asOf.
func dailySales(sku string, perDay, days int, asOf time.Time) []domain.SalesRecord {
	out := make([]domain.SalesRecord, 0, days)
	for i := days; i >= 1; i-- {
		out = append(out, domain.SalesRecord{
			SKU:          sku,
			Date:         asOf.AddDate(0, 0, -i),
			QuantitySold: perDay,
			Revenue:      float64(perDay) * 2.5,
			Channel:      "store",
		})
	}
	return out
}

func supplier(id, category string, rating, discount, lead float64, moq int, terms string) domain.SupplierProfile {
	return domain.SupplierProfile{
		ID:                  id,
		Name:                "Supplier " + id,
		Specialties:         []string{category},
		ReliabilityScore:    rating,
		RatingScale:         5,
		AverageLeadTimeDays: lead,
		MinOrderQuantity:    moq,
		DiscountRate:        discount,
		PaymentTerms:        terms,
	}
}

func newTestEngine() *Engine {
	e, err := NewEngine(DefaultPolicy(), DefaultSeasonalCatalog())
	if err != nil {
		panic(err)
	}
	return e
}
