package replenishment

import (
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

const scoreEpsilon = 1e-9

var paymentTermsScores = map[string]float64{
	"net15": 0.9,
	"net30": 0.8,
	"net60": 0.6,
}

const defaultPaymentTermsScore = 0.7

// PaymentTermsScore maps payment terms such as "Net 30" to their score.
func PaymentTermsScore(terms string) float64 {
	key := strings.ToLower(terms)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if s, ok := paymentTermsScores[key]; ok {
		return s
	}
	return defaultPaymentTermsScore
}

// ScoredSupplier is a candidate supplier with its weighted score.
type ScoredSupplier struct {
	Supplier domain.SupplierProfile `json:"supplier"`
	Score    float64                `json:"score"`
}

// SupplierSelection is the SupplierSelector output. Selected is nil when no
// supplier carries the category.
type SupplierSelection struct {
	Selected *domain.SupplierProfile `json:"selected,omitempty"`
	Score    float64                 `json:"score"`
	Ranked   []ScoredSupplier        `json:"ranked"`
}

// Found reports whether a supplier was selected.
func (s SupplierSelection) Found() bool {
	return s.Selected != nil
}

// SupplierSelector scores suppliers for a category.
type SupplierSelector struct {
	weights SupplierWeights
}

func NewSupplierSelector(weights SupplierWeights) *SupplierSelector {
	return &SupplierSelector{weights: weights}
}

// Score computes the weighted score of a supplier. Each component is within
// [0,1], so the result is bounded by the sum of the weights.
func (s *SupplierSelector) Score(sp domain.SupplierProfile) float64 {
	w := s.weights
	rating := clamp(sp.NormalizedRating()/5.0, 0, 1)
	discount := clamp(sp.DiscountRate/w.DiscountCeiling, 0, 1)
	delivery := math.Max(0, 1-sp.AverageLeadTimeDays/w.DeliveryHorizonDays)
	terms := PaymentTermsScore(sp.PaymentTerms)

	return w.Rating*rating + w.Discount*discount + w.Delivery*delivery + w.PaymentTerms*terms
}

// Select ranks the suppliers carrying category. Ties on score are broken by
// shorter lead time, then by supplier id.
func (s *SupplierSelector) Select(category string, suppliers []domain.SupplierProfile) SupplierSelection {
	var ranked []ScoredSupplier
	for _, sp := range suppliers {
		if !sp.Supplies(category) {
			continue
		}
		ranked = append(ranked, ScoredSupplier{Supplier: sp, Score: s.Score(sp)})
	}
	if len(ranked) == 0 {
		return SupplierSelection{}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if a.Supplier.AverageLeadTimeDays != b.Supplier.AverageLeadTimeDays {
			return a.Supplier.AverageLeadTimeDays < b.Supplier.AverageLeadTimeDays
		}
		return a.Supplier.ID < b.Supplier.ID
	})

	best := ranked[0].Supplier
	return SupplierSelection{
		Selected: &best,
		Score:    ranked[0].Score,
		Ranked:   ranked,
	}
}

// ValidateSupplier checks the fields scoring depends on.
func ValidateSupplier(sp domain.SupplierProfile) error {
	switch {
	case strings.TrimSpace(sp.ID) == "":
		return newDataError("", "supplier.id", "empty supplier id")
	case sp.RatingScale != 0 && sp.RatingScale != 5 && sp.RatingScale != 10:
		return newDataError("", "supplier.rating_scale", "supplier %s: rating scale must be 5 or 10, got %d", sp.ID, sp.RatingScale)
	case sp.ReliabilityScore < 0 || sp.NormalizedRating() > 5:
		return newDataError("", "supplier.reliability_score", "supplier %s: score %v outside rating scale", sp.ID, sp.ReliabilityScore)
	case sp.DiscountRate < 0 || sp.DiscountRate > 100:
		return newDataError("", "supplier.discount_rate", "supplier %s: discount rate must be within 0-100, got %v", sp.ID, sp.DiscountRate)
	case sp.AverageLeadTimeDays < 0:
		return newDataError("", "supplier.average_lead_time_days", "supplier %s: negative lead time", sp.ID)
	case sp.MinOrderQuantity < 0:
		return newDataError("", "supplier.min_order_quantity", "supplier %s: negative minimum order quantity", sp.ID)
	case len(sp.Specialties) == 0:
		return newDataError("", "supplier.specialties", "supplier %s: no specialties", sp.ID)
	}
	return nil
}
