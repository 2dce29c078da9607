package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository/memory"
)

var testAsOf = time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

func outOfStockItem(sku string) domain.InventoryItem {
	return domain.InventoryItem{
		SKU:               sku,
		Name:              "Stapler " + sku,
		Category:          "FILING_STORAGE",
		CurrentStock:      0,
		MinStockThreshold: 20,
		MaxStockCapacity:  400,
		UnitCost:          4.5,
		LeadTimeDays:      5,
	}
}

func healthyItem(sku string) domain.InventoryItem {
	return domain.InventoryItem{
		SKU:               sku,
		Name:              "Binder " + sku,
		Category:          "FILING_STORAGE",
		CurrentStock:      1000,
		MinStockThreshold: 10,
		MaxStockCapacity:  2000,
		UnitCost:          2,
		LeadTimeDays:      5,
	}
}

func dailySales(sku string, perDay, days int) []domain.SalesRecord {
	out := make([]domain.SalesRecord, 0, days)
	for i := days; i >= 1; i-- {
		out = append(out, domain.SalesRecord{SKU: sku, Date: testAsOf.AddDate(0, 0, -i), QuantitySold: perDay})
	}
	return out
}

func filingSupplier() domain.SupplierProfile {
	return domain.SupplierProfile{
		ID:                  "SUP-1",
		Name:                "Filing Co",
		Specialties:         []string{"FILING_STORAGE"},
		ReliabilityScore:    4.5,
		RatingScale:         5,
		AverageLeadTimeDays: 4,
		MinOrderQuantity:    50,
		DiscountRate:        5,
		PaymentTerms:        "NET30",
	}
}

// recordingSink collects everything published to it.
type recordingSink struct {
	mu        sync.Mutex
	decisions []domain.Decision
	alerts    []domain.Alert
	err       error
}

func (s *recordingSink) PublishDecision(_ context.Context, d domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *recordingSink) PublishAlert(_ context.Context, a domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, a)
	return nil
}

type fakeLocker struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocker) TryLock(context.Context, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

type fakeRunStore struct {
	mu      sync.Mutex
	created []CycleRun
	updated []CycleRun
}

func (s *fakeRunStore) CreateCycleRun(_ context.Context, run *CycleRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *run)
	return nil
}

func (s *fakeRunStore) UpdateCycleRun(_ context.Context, run *CycleRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, *run)
	return nil
}

func (s *fakeRunStore) GetCycleRun(_ context.Context, id string) (*CycleRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.updated) - 1; i >= 0; i-- {
		if s.updated[i].ID == id {
			run := s.updated[i]
			return &run, nil
		}
	}
	return nil, ErrRunNotFound
}

func (s *fakeRunStore) LatestCycleRuns(context.Context, int) ([]CycleRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CycleRun(nil), s.updated...), nil
}

type countingMetrics struct {
	noopMetrics
	mu       sync.Mutex
	cycles   map[string]int
	failures map[string]int
	skipped  int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{cycles: map[string]int{}, failures: map[string]int{}}
}

func (m *countingMetrics) RecordCycle(_ context.Context, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[status]++
}

func (m *countingMetrics) RecordItemFailure(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *countingMetrics) RecordSkipped(_ context.Context, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped += n
}

var errUnreachable = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.WorkerCount = 2
	cfg.BackoffInitial = 30 * time.Second
	cfg.BackoffMax = 100 * time.Second
	return cfg
}

func newTestCycle(catalog *memory.Catalog, sink replenishment.Sink, opts ...CycleOption) *Cycle {
	engine, err := replenishment.NewEngine(replenishment.DefaultPolicy(), nil)
	if err != nil {
		panic(err)
	}

	var n int
	var mu sync.Mutex
	base := []CycleOption{
		WithClock(func() time.Time { return testAsOf }),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("cycle-%d", n)
		}),
	}
	return NewCycle(engine, catalog, sink, testConfig(), append(base, opts...)...)
}
