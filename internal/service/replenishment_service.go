package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

// ErrNotFound is returned when no decision exists for the requested SKU.
var ErrNotFound = errors.New("not found")

const defaultLatestLimit = 50

// CycleRunner is the part of pipeline.Scheduler the service drives.
type CycleRunner interface {
	RunOnce(ctx context.Context) (*pipeline.CycleResult, error)
	Status() pipeline.Status
	LastResult() *pipeline.CycleResult
}

// StatusReport is the scheduler snapshot plus recently persisted runs.
type StatusReport struct {
	Scheduler  pipeline.Status     `json:"scheduler"`
	RecentRuns []pipeline.CycleRun `json:"recent_runs,omitempty"`
}

// Explanation is the reasoning behind the latest decision for one SKU.
type Explanation struct {
	SKU       string          `json:"sku"`
	Decision  domain.Decision `json:"decision"`
	Reasoning string          `json:"reasoning"`
	Summary   string          `json:"summary,omitempty"`
}

type ReplenishmentService struct {
	runner    CycleRunner
	decisions repository.DecisionStore
	runs      pipeline.RunStore
}

// NewReplenishmentService wires the scheduler with the optional stores. Without
// a decision store the latest cycle result in memory is served instead.
func NewReplenishmentService(runner CycleRunner, decisions repository.DecisionStore, runs pipeline.RunStore) *ReplenishmentService {
	return &ReplenishmentService{runner: runner, decisions: decisions, runs: runs}
}

func (s *ReplenishmentService) Status(ctx context.Context) StatusReport {
	report := StatusReport{Scheduler: s.runner.Status()}
	if s.runs == nil {
		return report
	}

	runs, err := s.runs.LatestCycleRuns(ctx, 10)
	if err != nil {
		log.Warn().Err(err).Msg("replenishment: load recent cycle runs failed")
		return report
	}
	report.RecentRuns = runs
	return report
}

// CycleRun returns one run. The in-memory last result answers first, so a
// run is visible even without a run store.
func (s *ReplenishmentService) CycleRun(ctx context.Context, id string) (*pipeline.CycleRun, error) {
	if last := s.runner.LastResult(); last != nil && last.Run.ID == id {
		run := last.Run
		return &run, nil
	}
	if s.runs == nil {
		return nil, fmt.Errorf("cycle %s: %w", id, ErrNotFound)
	}

	run, err := s.runs.GetCycleRun(ctx, id)
	if errors.Is(err, pipeline.ErrRunNotFound) {
		return nil, fmt.Errorf("cycle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load cycle %s: %w", id, err)
	}
	return run, nil
}

func (s *ReplenishmentService) RunCycle(ctx context.Context) (*pipeline.CycleResult, error) {
	return s.runner.RunOnce(ctx)
}

func (s *ReplenishmentService) LatestDecisions(ctx context.Context, limit int) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if s.decisions != nil {
		return s.decisions.LatestDecisions(ctx, limit)
	}

	last := s.runner.LastResult()
	if last == nil {
		return []domain.Decision{}, nil
	}
	return head(last.Decisions, limit), nil
}

func (s *ReplenishmentService) LatestAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}
	if s.decisions != nil {
		return s.decisions.LatestAlerts(ctx, limit)
	}

	last := s.runner.LastResult()
	if last == nil {
		return []domain.Alert{}, nil
	}
	return head(last.Alerts, limit), nil
}

// Explain returns the reasoning for the most recent decision on sku.
func (s *ReplenishmentService) Explain(ctx context.Context, sku string) (*Explanation, error) {
	if last := s.runner.LastResult(); last != nil {
		if d, ok := last.Decision(sku); ok {
			return explanationFor(d), nil
		}
	}

	if s.decisions != nil {
		recent, err := s.decisions.LatestDecisions(ctx, defaultLatestLimit)
		if err != nil {
			return nil, fmt.Errorf("load decisions: %w", err)
		}
		for _, d := range recent {
			if d.SKU == sku {
				return explanationFor(d), nil
			}
		}
	}

	return nil, fmt.Errorf("decision for %s: %w", sku, ErrNotFound)
}

func explanationFor(d domain.Decision) *Explanation {
	e := &Explanation{SKU: d.SKU, Decision: d, Reasoning: d.BaseReasoning()}
	if len(d.Reasoning) > len(e.Reasoning) {
		e.Summary = d.Reasoning[len(e.Reasoning)+len(domain.SummaryMarker):]
	}
	return e
}

func head[T any](xs []T, n int) []T {
	if len(xs) > n {
		xs = xs[:n]
	}
	return append([]T(nil), xs...)
}
