package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository"
	"github.com/andresuchdata/restock-engine/internal/storage"
)

// MultiSink fans out to every sink. All sinks are attempted; the errors are
// joined.
type MultiSink struct {
	sinks []replenishment.Sink
}

func NewMultiSink(sinks ...replenishment.Sink) *MultiSink {
	out := make([]replenishment.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) PublishDecision(ctx context.Context, d domain.Decision) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishDecision(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) PublishAlert(ctx context.Context, a domain.Alert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.PublishAlert(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of wired sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// LogSink writes decisions and alerts to the structured log.
type LogSink struct{}

func (LogSink) PublishDecision(_ context.Context, d domain.Decision) error {
	event := log.Info()
	if d.RequiresApproval {
		event = log.Warn()
	}
	supplier := ""
	if d.SupplierID != nil {
		supplier = *d.SupplierID
	}
	event.
		Str("cycle_id", d.CycleID).
		Str("sku", d.SKU).
		Str("action", string(d.ActionType)).
		Str("priority", string(d.Priority)).
		Int("quantity", d.RecommendedQuantity).
		Str("supplier_id", supplier).
		Float64("estimated_cost", d.EstimatedCost).
		Float64("confidence", d.ConfidenceScore).
		Str("approval", string(d.ApprovalStatus)).
		Msg("restock decision")
	return nil
}

func (LogSink) PublishAlert(_ context.Context, a domain.Alert) error {
	log.Warn().
		Str("cycle_id", a.CycleID).
		Str("sku", a.SKU).
		Str("tier", string(a.Tier)).
		Str("threshold_type", string(a.ThresholdType)).
		Str("days_until_stockout", a.DaysUntilStockout.String()).
		Msg("stock alert")
	return nil
}

// RepositorySink persists the output through a DecisionStore.
type RepositorySink struct {
	store repository.DecisionStore
}

func NewRepositorySink(store repository.DecisionStore) *RepositorySink {
	return &RepositorySink{store: store}
}

func (s *RepositorySink) PublishDecision(ctx context.Context, d domain.Decision) error {
	if err := s.store.SaveDecision(ctx, d); err != nil {
		return fmt.Errorf("store decision: %w", err)
	}
	return nil
}

func (s *RepositorySink) PublishAlert(ctx context.Context, a domain.Alert) error {
	if err := s.store.SaveAlert(ctx, a); err != nil {
		return fmt.Errorf("store alert: %w", err)
	}
	return nil
}

// NotarySink writes a ledger fingerprint for every decision. Alerts are not
// notarized.
type NotarySink struct {
	notary *storage.Notary
}

func NewNotarySink(notary *storage.Notary) *NotarySink {
	return &NotarySink{notary: notary}
}

func (s *NotarySink) PublishDecision(ctx context.Context, d domain.Decision) error {
	entry, err := s.notary.Notarize(ctx, d)
	if err != nil {
		return fmt.Errorf("notarize decision %s: %w", d.ID, err)
	}
	log.Debug().Str("sku", d.SKU).Str("hash", entry.Hash).Msg("decision notarized")
	return nil
}

func (s *NotarySink) PublishAlert(context.Context, domain.Alert) error {
	return nil
}

var (
	_ replenishment.Sink = (*MultiSink)(nil)
	_ replenishment.Sink = LogSink{}
	_ replenishment.Sink = (*RepositorySink)(nil)
	_ replenishment.Sink = (*NotarySink)(nil)
	_ replenishment.Sink = (*PubSubSink)(nil)
)
