package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// State is the scheduler's lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateStopped  State = "stopped"
)

// CycleStatus represents the outcome of a single cycle run
type CycleStatus string

const (
	StatusRunning   CycleStatus = "running"
	StatusCompleted CycleStatus = "completed"
	StatusFailed    CycleStatus = "failed"
	// StatusSkipped marks a cycle that did not run because another replica
	// held the cycle lock.
	StatusSkipped CycleStatus = "skipped"
)

// Config holds the cycle and scheduler settings.
type Config struct {
	Interval         time.Duration // sleep between cycles
	MaxCycleDuration time.Duration // items not started by then are skipped
	SalesWindowDays  int
	WorkerCount      int // concurrent item evaluations
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	LockTTL          time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:         time.Hour,
		MaxCycleDuration: 10 * time.Minute,
		SalesWindowDays:  90,
		WorkerCount:      4,
		BackoffInitial:   30 * time.Second,
		BackoffMax:       30 * time.Minute,
		LockTTL:          15 * time.Minute,
	}
}

// CycleRun tracks a single execution of the replenishment cycle
type CycleRun struct {
	ID           string      `json:"id" db:"id"`
	StartedAt    time.Time   `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	Status       CycleStatus `json:"status" db:"status"`
	TotalItems   int         `json:"total_items" db:"total_items"`
	Processed    int         `json:"processed" db:"processed"`
	Failed       int         `json:"failed" db:"failed"`
	Skipped      int         `json:"skipped" db:"skipped"`
	Decisions    int         `json:"decisions" db:"decisions"`
	Alerts       int         `json:"alerts" db:"alerts"`
	ErrorMessage string      `json:"error_message,omitempty" db:"error_message"`
}

// Duration returns how long the run took, or zero while it is running.
func (r CycleRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// ItemError is a per-item failure. The item gets no decision this cycle.
type ItemError struct {
	SKU string
	Err error
}

func (e ItemError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		SKU   string `json:"sku"`
		Error string `json:"error"`
	}{e.SKU, msg})
}

// CycleResult is the output set of one cycle.
type CycleResult struct {
	Run       CycleRun          `json:"run"`
	Decisions []domain.Decision `json:"decisions"`
	Alerts    []domain.Alert    `json:"alerts"`
	Errors    []ItemError       `json:"errors"`
	// Skipped lists items left unprocessed after a stop or deadline.
	Skipped []string `json:"skipped"`
}

// Decision returns the decision for sku, if the cycle produced one.
func (r *CycleResult) Decision(sku string) (domain.Decision, bool) {
	for _, d := range r.Decisions {
		if d.SKU == sku {
			return d, true
		}
	}
	return domain.Decision{}, false
}

// RunStore persists cycle runs. GetCycleRun returns ErrRunNotFound for an
// unknown id.
type RunStore interface {
	CreateCycleRun(ctx context.Context, run *CycleRun) error
	UpdateCycleRun(ctx context.Context, run *CycleRun) error
	GetCycleRun(ctx context.Context, id string) (*CycleRun, error)
	LatestCycleRuns(ctx context.Context, limit int) ([]CycleRun, error)
}

// Locker guards against overlapping cycles across replicas. ok is false when
// another holder has the lock.
type Locker interface {
	TryLock(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// Metrics records cycle measurements. The telemetry package provides the
// OpenTelemetry implementation.
type Metrics interface {
	RecordCycle(ctx context.Context, status string, duration time.Duration)
	RecordDecision(ctx context.Context, priority, action, approval string)
	RecordAlert(ctx context.Context, thresholdType, tier string)
	RecordItemFailure(ctx context.Context, reason string)
	RecordSkipped(ctx context.Context, n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordCycle(context.Context, string, time.Duration)     {}
func (noopMetrics) RecordDecision(context.Context, string, string, string) {}
func (noopMetrics) RecordAlert(context.Context, string, string)            {}
func (noopMetrics) RecordItemFailure(context.Context, string)              {}
func (noopMetrics) RecordSkipped(context.Context, int)                     {}
