package memory

import (
	"context"
	"sync"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

// DecisionStore keeps decisions and alerts in memory, keyed by id so that
// re-saving the same record replaces it.
type DecisionStore struct {
	mu        sync.RWMutex
	decisions []domain.Decision
	alerts    []domain.Alert
	byID      map[string]int
	alertByID map[string]int
}

// NewDecisionStore creates an empty in-memory decision store
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		byID:      make(map[string]int),
		alertByID: make(map[string]int),
	}
}

var _ repository.DecisionStore = (*DecisionStore)(nil)

func (s *DecisionStore) SaveDecision(ctx context.Context, d domain.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[d.ID]; ok {
		s.decisions[i] = d
		return nil
	}
	s.byID[d.ID] = len(s.decisions)
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *DecisionStore) SaveAlert(ctx context.Context, a domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.alertByID[a.ID]; ok {
		s.alerts[i] = a
		return nil
	}
	s.alertByID[a.ID] = len(s.alerts)
	s.alerts = append(s.alerts, a)
	return nil
}

// LatestDecisions returns up to limit decisions, newest first
func (s *DecisionStore) LatestDecisions(ctx context.Context, limit int) ([]domain.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := capLimit(limit, len(s.decisions))
	out := make([]domain.Decision, 0, n)
	for i := len(s.decisions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.decisions[i])
	}
	return out, nil
}

// LatestAlerts returns up to limit alerts, newest first
func (s *DecisionStore) LatestAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := capLimit(limit, len(s.alerts))
	out := make([]domain.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.alerts[i])
	}
	return out, nil
}

func capLimit(limit, size int) int {
	if limit <= 0 || limit > size {
		return size
	}
	return limit
}
