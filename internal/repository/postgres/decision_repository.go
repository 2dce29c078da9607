package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

const defaultLatestLimit = 50

type decisionRepository struct {
	db *DB
}

// NewDecisionRepository stores decisions and alerts in postgres. Saving is an
// upsert on id, so republishing a cycle's output is harmless.
func NewDecisionRepository(db *DB) repository.DecisionStore {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) SaveDecision(ctx context.Context, d domain.Decision) error {
	query := `
		INSERT INTO decisions (
			id, cycle_id, sku, action_type, priority, recommended_quantity,
			supplier_id, estimated_cost, confidence_score, requires_approval,
			approval_status, expected_delivery_days, reasoning, created_at
		) VALUES (
			:id, :cycle_id, :sku, :action_type, :priority, :recommended_quantity,
			:supplier_id, :estimated_cost, :confidence_score, :requires_approval,
			:approval_status, :expected_delivery_days, :reasoning, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			reasoning = EXCLUDED.reasoning,
			approval_status = EXCLUDED.approval_status
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, d); err != nil {
			return fmt.Errorf("failed to save decision for %s: %w", d.SKU, err)
		}
		return nil
	})
}

func (r *decisionRepository) SaveAlert(ctx context.Context, a domain.Alert) error {
	query := `
		INSERT INTO alerts (
			id, cycle_id, sku, threshold_type, days_until_stockout, alert_tier, created_at
		) VALUES (
			:id, :cycle_id, :sku, :threshold_type, :days_until_stockout, :alert_tier, :created_at
		)
		ON CONFLICT (id) DO NOTHING
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, a); err != nil {
			return fmt.Errorf("failed to save alert for %s: %w", a.SKU, err)
		}
		return nil
	})
}

func (r *decisionRepository) LatestDecisions(ctx context.Context, limit int) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	query := `
		SELECT id, cycle_id, sku, action_type, priority, recommended_quantity,
		       supplier_id, estimated_cost::float8 AS estimated_cost,
		       confidence_score::float8 AS confidence_score, requires_approval,
		       approval_status, expected_delivery_days, reasoning, created_at
		FROM decisions
		ORDER BY created_at DESC, sku
		LIMIT $1
	`

	var decisions []domain.Decision
	if err := r.db.SelectContext(ctx, &decisions, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load latest decisions: %w", err)
	}
	return decisions, nil
}

func (r *decisionRepository) LatestAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = defaultLatestLimit
	}

	query := `
		SELECT id, cycle_id, sku, threshold_type, days_until_stockout, alert_tier, created_at
		FROM alerts
		ORDER BY created_at DESC, sku
		LIMIT $1
	`

	var alerts []domain.Alert
	if err := r.db.SelectContext(ctx, &alerts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load latest alerts: %w", err)
	}
	return alerts, nil
}
