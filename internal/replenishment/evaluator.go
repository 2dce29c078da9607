package replenishment

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// ItemInput is the snapshot slice one item is evaluated against.
type ItemInput struct {
	CycleID   string
	AsOf      time.Time
	Item      domain.InventoryItem
	Sales     []domain.SalesRecord
	Suppliers []domain.SupplierProfile
	// WindowDays is the trailing window Sales covers.
	WindowDays int
}

// ItemResult is the full pipeline output for one item.
type ItemResult struct {
	Decision  domain.Decision   `json:"decision"`
	Alert     *domain.Alert     `json:"alert,omitempty"`
	Forecast  DemandForecast    `json:"forecast"`
	Risk      RiskAssessment    `json:"risk"`
	Quantity  OrderQuantity     `json:"quantity"`
	Selection SupplierSelection `json:"selection"`
}

// ExplanationContext returns the generator input for the result.
func (r *ItemResult) ExplanationContext(item domain.InventoryItem) ExplanationContext {
	return ExplanationContext{
		Item:      item,
		Decision:  r.Decision,
		Forecast:  r.Forecast,
		Risk:      r.Risk,
		Quantity:  r.Quantity,
		Selection: r.Selection,
	}
}

// Engine runs the per-item pipeline: demand, risk, supplier, quantity, gate.
// Evaluate is pure and safe to call from many goroutines.
type Engine struct {
	policy   Policy
	catalog  *SeasonalCatalog
	demand   *DemandAnalyzer
	risk     *RiskClassifier
	quantity *QuantityCalculator
	supplier *SupplierSelector
	gate     *DecisionGate

	explainer      ExplanationGenerator
	explainTimeout time.Duration
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithExplanationGenerator enables summary enrichment with the given timeout.
func WithExplanationGenerator(g ExplanationGenerator, timeout time.Duration) EngineOption {
	return func(e *Engine) {
		e.explainer = g
		e.explainTimeout = timeout
	}
}

// NewEngine validates the policy and wires the pipeline components.
func NewEngine(policy Policy, catalog *SeasonalCatalog, opts ...EngineOption) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = DefaultSeasonalCatalog()
	}
	e := &Engine{
		policy:   policy,
		catalog:  catalog,
		demand:   NewDemandAnalyzer(catalog, policy.ForecastMonths),
		risk:     NewRiskClassifier(policy),
		quantity: NewQuantityCalculator(policy),
		supplier: NewSupplierSelector(policy.Supplier),
		gate:     NewDecisionGate(policy),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Catalog returns the seasonal catalog the engine uses.
func (e *Engine) Catalog() *SeasonalCatalog {
	return e.catalog
}

// Evaluate runs the pipeline for one item. A malformed item or sales record
// yields a *DataError and no result.
func (e *Engine) Evaluate(in ItemInput) (*ItemResult, error) {
	if err := validateItem(in.Item); err != nil {
		return nil, err
	}
	if err := validateSales(in.Item.SKU, in.Sales); err != nil {
		return nil, err
	}

	month := int(in.AsOf.Month())
	res := &ItemResult{}

	res.Forecast = e.demand.Analyze(in.Item, in.Sales, month)
	res.Risk = e.risk.Classify(in.Item, res.Forecast, in.Sales, in.WindowDays, month)
	res.Selection = e.supplier.Select(in.Item.Category, in.Suppliers)
	res.Quantity = e.quantity.Calculate(in.Item, res.Forecast, res.Risk, res.Selection.Selected)
	res.Decision = e.gate.Decide(GateInput{
		CycleID:   in.CycleID,
		AsOf:      in.AsOf,
		Item:      in.Item,
		Forecast:  res.Forecast,
		Risk:      res.Risk,
		Quantity:  res.Quantity,
		Selection: res.Selection,
	})
	res.Alert = res.Risk.Alert(in.CycleID, in.Item.SKU, in.AsOf)

	if !res.Selection.Found() {
		log.Debug().Str("sku", in.Item.SKU).Str("category", in.Item.Category).Err(ErrNoSupplier).Msg("decision requires approval")
	}
	return res, nil
}

// Explain enriches the decision reasoning with the generator's summary. It is
// a no-op without a generator and leaves the reasoning untouched on error or
// empty output.
func (e *Engine) Explain(ctx context.Context, item domain.InventoryItem, res *ItemResult) {
	if e.explainer == nil || res == nil {
		return
	}
	if e.explainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.explainTimeout)
		defer cancel()
	}

	summary, err := e.explainer.Summarize(ctx, res.ExplanationContext(item))
	if err != nil {
		log.Warn().Err(err).Str("sku", item.SKU).Msg("explanation generator failed, keeping deterministic reasoning")
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	res.Decision.Reasoning += domain.SummaryMarker + summary
}

// HasExplainer reports whether an explanation generator is configured.
func (e *Engine) HasExplainer() bool {
	return e.explainer != nil
}

func validateItem(item domain.InventoryItem) error {
	sku := item.SKU
	switch {
	case strings.TrimSpace(sku) == "":
		return newDataError("", "sku", "empty sku")
	case strings.TrimSpace(item.Category) == "":
		return newDataError(sku, "category", "missing category")
	case item.CurrentStock < 0:
		return newDataError(sku, "current_stock", "negative stock %d", item.CurrentStock)
	case item.MinStockThreshold < 0:
		return newDataError(sku, "min_stock_threshold", "negative threshold %d", item.MinStockThreshold)
	case item.MaxStockCapacity <= 0:
		return newDataError(sku, "max_stock_capacity", "capacity must be positive, got %d", item.MaxStockCapacity)
	case item.UnitCost < 0:
		return newDataError(sku, "unit_cost", "negative unit cost %v", item.UnitCost)
	case item.LeadTimeDays < 0:
		return newDataError(sku, "lead_time_days", "negative lead time %d", item.LeadTimeDays)
	}
	return nil
}

func validateSales(sku string, sales []domain.SalesRecord) error {
	for i, s := range sales {
		switch {
		case s.SKU != sku:
			return newDataError(sku, "sales", "record %d belongs to sku %q", i, s.SKU)
		case s.Date.IsZero():
			return newDataError(sku, "sales.date", "record %d has no date", i)
		case s.QuantitySold < 0:
			return newDataError(sku, "sales.quantity_sold", "record %d has negative quantity %d", i, s.QuantitySold)
		}
	}
	return nil
}
