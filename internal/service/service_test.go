package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository/memory"
)

var asOf = time.Date(2025, 9, 15, 8, 0, 0, 0, time.UTC)

func newScheduler(t *testing.T, skus ...string) *pipeline.Scheduler {
	t.Helper()
	catalog := memory.NewCatalog()
	for _, sku := range skus {
		catalog.AddItems(domain.InventoryItem{
			SKU: sku, Name: "File " + sku, Category: "FILING_STORAGE",
			MinStockThreshold: 20, MaxStockCapacity: 400, UnitCost: 4.5, LeadTimeDays: 5,
		})
	}
	catalog.AddSuppliers(domain.SupplierProfile{
		ID: "SUP-1", Name: "Filing Co", Specialties: []string{"FILING_STORAGE"},
		ReliabilityScore: 4.5, RatingScale: 5, AverageLeadTimeDays: 4, MinOrderQuantity: 50,
	})

	engine, err := replenishment.NewEngine(replenishment.DefaultPolicy(), nil)
	require.NoError(t, err)

	n := 0
	cycle := pipeline.NewCycle(engine, catalog, nil, pipeline.DefaultConfig(),
		pipeline.WithClock(func() time.Time { return asOf }),
		pipeline.WithIDGenerator(func() string { n++; return fmt.Sprintf("cycle-%d", n) }),
	)
	return pipeline.NewScheduler(cycle, pipeline.DefaultConfig())
}

type stubRuns struct {
	runs []pipeline.CycleRun
	err  error
}

func (s *stubRuns) CreateCycleRun(context.Context, *pipeline.CycleRun) error { return nil }
func (s *stubRuns) UpdateCycleRun(context.Context, *pipeline.CycleRun) error { return nil }
func (s *stubRuns) GetCycleRun(_ context.Context, id string) (*pipeline.CycleRun, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.runs {
		if s.runs[i].ID == id {
			return &s.runs[i], nil
		}
	}
	return nil, pipeline.ErrRunNotFound
}

func (s *stubRuns) LatestCycleRuns(context.Context, int) ([]pipeline.CycleRun, error) {
	return s.runs, s.err
}

func TestService_LatestFromLastResult(t *testing.T) {
	svc := NewReplenishmentService(newScheduler(t, "A-1", "A-2"), nil, nil)
	ctx := context.Background()

	decisions, err := svc.LatestDecisions(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, decisions)

	_, err = svc.RunCycle(ctx)
	require.NoError(t, err)

	decisions, err = svc.LatestDecisions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "A-1", decisions[0].SKU)

	alerts, err := svc.LatestAlerts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, alerts, 2)
}

func TestService_LatestFromStore(t *testing.T) {
	store := memory.NewDecisionStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDecision(ctx, domain.Decision{ID: "d1", SKU: "X-1", CreatedAt: asOf}))

	svc := NewReplenishmentService(newScheduler(t, "A-1"), store, nil)
	decisions, err := svc.LatestDecisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, "X-1", decisions[0].SKU)
}

func TestService_Status(t *testing.T) {
	runs := &stubRuns{runs: []pipeline.CycleRun{{ID: "cycle-9", Status: pipeline.StatusCompleted}}}
	svc := NewReplenishmentService(newScheduler(t, "A-1"), nil, runs)

	report := svc.Status(context.Background())
	assert.Equal(t, pipeline.StateIdle, report.Scheduler.State)
	require.Len(t, report.RecentRuns, 1)

	runs.err = errors.New("db down")
	report = svc.Status(context.Background())
	assert.Empty(t, report.RecentRuns)
}

func TestService_CycleRun(t *testing.T) {
	ctx := context.Background()
	runs := &stubRuns{runs: []pipeline.CycleRun{{ID: "cycle-9", Status: pipeline.StatusFailed}}}
	svc := NewReplenishmentService(newScheduler(t, "A-1"), nil, runs)

	res, err := svc.RunCycle(ctx)
	require.NoError(t, err)

	t.Run("last result", func(t *testing.T) {
		run, err := svc.CycleRun(ctx, res.Run.ID)
		require.NoError(t, err)
		assert.Equal(t, pipeline.StatusCompleted, run.Status)
	})

	t.Run("from store", func(t *testing.T) {
		run, err := svc.CycleRun(ctx, "cycle-9")
		require.NoError(t, err)
		assert.Equal(t, pipeline.StatusFailed, run.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.CycleRun(ctx, "cycle-404")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("store error", func(t *testing.T) {
		failing := NewReplenishmentService(newScheduler(t, "A-1"), nil, &stubRuns{err: errors.New("db down")})
		_, err := failing.CycleRun(ctx, "cycle-9")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("no store", func(t *testing.T) {
		bare := NewReplenishmentService(newScheduler(t, "A-1"), nil, nil)
		_, err := bare.CycleRun(ctx, "cycle-9")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Explain(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDecisionStore()
	require.NoError(t, store.SaveDecision(ctx, domain.Decision{
		ID: "d1", SKU: "OLD-1", CreatedAt: asOf,
		Reasoning: "Below minimum." + domain.SummaryMarker + "Order soon.",
	}))
	svc := NewReplenishmentService(newScheduler(t, "A-1"), store, nil)

	_, err := svc.RunCycle(ctx)
	require.NoError(t, err)

	exp, err := svc.Explain(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, "A-1", exp.SKU)
	assert.NotEmpty(t, exp.Reasoning)
	assert.Empty(t, exp.Summary)

	exp, err = svc.Explain(ctx, "OLD-1")
	require.NoError(t, err)
	assert.Equal(t, "Below minimum.", exp.Reasoning)
	assert.Equal(t, "Order soon.", exp.Summary)

	_, err = svc.Explain(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommand_Validate(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		ok   bool
	}{
		{"run cycle", Command{Type: CommandRunCycle}, true},
		{"status", Command{Type: CommandStatus}, true},
		{"explain", Command{Type: CommandExplainSKU, SKU: "A-1"}, true},
		{"explain without sku", Command{Type: CommandExplainSKU, SKU: "  "}, false},
		{"unknown", Command{Type: "reorder_everything"}, false},
		{"empty", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidCommand)
		})
	}
}

func TestService_Execute(t *testing.T) {
	svc := NewReplenishmentService(newScheduler(t, "A-1"), nil, nil)
	ctx := context.Background()

	res, err := svc.Execute(ctx, Command{Type: CommandRunCycle})
	require.NoError(t, err)
	require.NotNil(t, res.Cycle)
	assert.Equal(t, "cycle-1", res.Cycle.Run.ID)
	assert.Nil(t, res.Status)

	res, err = svc.Execute(ctx, Command{Type: CommandStatus})
	require.NoError(t, err)
	require.NotNil(t, res.Status)
	require.NotNil(t, res.Status.Scheduler.LastRun)

	res, err = svc.Execute(ctx, Command{Type: CommandExplainSKU, SKU: " A-1 "})
	require.NoError(t, err)
	require.NotNil(t, res.Explanation)
	assert.Equal(t, "A-1", res.Explanation.SKU)

	_, err = svc.Execute(ctx, Command{Type: "delete"})
	assert.ErrorIs(t, err, ErrInvalidCommand)
}
