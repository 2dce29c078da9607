package pipeline

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Repository handles database operations for cycle run tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new cycle run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateCycleRun creates a new cycle run record
func (r *Repository) CreateCycleRun(ctx context.Context, run *CycleRun) error {
	query := `
		INSERT INTO cycle_runs (
			id, started_at, status, total_items, processed,
			failed, skipped, decisions, alerts, error_message
		) VALUES (
			:id, :started_at, :status, :total_items, :processed,
			:failed, :skipped, :decisions, :alerts, :error_message
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// UpdateCycleRun updates an existing cycle run
func (r *Repository) UpdateCycleRun(ctx context.Context, run *CycleRun) error {
	query := `
		UPDATE cycle_runs
		SET status = :status, total_items = :total_items, processed = :processed,
		    failed = :failed, skipped = :skipped, decisions = :decisions,
		    alerts = :alerts, completed_at = :completed_at, error_message = :error_message
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// GetCycleRun retrieves a cycle run by ID
func (r *Repository) GetCycleRun(ctx context.Context, id string) (*CycleRun, error) {
	query := `
		SELECT id, started_at, completed_at, status, total_items, processed,
		       failed, skipped, decisions, alerts, COALESCE(error_message, '') AS error_message
		FROM cycle_runs
		WHERE id = $1
	`

	run := &CycleRun{}
	err := r.db.GetContext(ctx, run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	return run, nil
}

// LatestCycleRuns retrieves the most recent cycle runs
func (r *Repository) LatestCycleRuns(ctx context.Context, limit int) ([]CycleRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, started_at, completed_at, status, total_items, processed,
		       failed, skipped, decisions, alerts, COALESCE(error_message, '') AS error_message
		FROM cycle_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	var runs []CycleRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}

	return runs, nil
}
