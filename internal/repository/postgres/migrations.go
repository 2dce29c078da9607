package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS inventory_items (
		sku VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		category VARCHAR(64) NOT NULL,
		current_stock INTEGER NOT NULL DEFAULT 0 CHECK (current_stock >= 0),
		min_stock_threshold INTEGER NOT NULL DEFAULT 0 CHECK (min_stock_threshold >= 0),
		max_stock_capacity INTEGER NOT NULL CHECK (max_stock_capacity > 0),
		unit_cost NUMERIC(12, 2) NOT NULL DEFAULT 0,
		lead_time_days INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS suppliers (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		reliability_score NUMERIC(4, 2) NOT NULL DEFAULT 0,
		rating_scale INTEGER NOT NULL DEFAULT 10,
		average_lead_time_days NUMERIC(6, 2) NOT NULL DEFAULT 0,
		min_order_quantity INTEGER NOT NULL DEFAULT 0,
		discount_rate NUMERIC(5, 2) NOT NULL DEFAULT 0,
		payment_terms VARCHAR(32) NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS supplier_specialties (
		supplier_id VARCHAR(64) NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
		category VARCHAR(64) NOT NULL,
		PRIMARY KEY (supplier_id, category)
	)`,

	`CREATE TABLE IF NOT EXISTS sales_records (
		id BIGSERIAL PRIMARY KEY,
		sku VARCHAR(64) NOT NULL REFERENCES inventory_items(sku) ON DELETE CASCADE,
		sale_date TIMESTAMP WITH TIME ZONE NOT NULL,
		quantity_sold INTEGER NOT NULL CHECK (quantity_sold >= 0),
		revenue NUMERIC(12, 2) NOT NULL DEFAULT 0,
		channel VARCHAR(32) NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sales_records_sku_date ON sales_records(sku, sale_date)`,

	`CREATE TABLE IF NOT EXISTS cycle_runs (
		id VARCHAR(64) PRIMARY KEY,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		completed_at TIMESTAMP WITH TIME ZONE,
		status VARCHAR(16) NOT NULL,
		total_items INTEGER NOT NULL DEFAULT 0,
		processed INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		decisions INTEGER NOT NULL DEFAULT 0,
		alerts INTEGER NOT NULL DEFAULT 0,
		error_message TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cycle_runs_started_at ON cycle_runs(started_at DESC)`,

	`CREATE TABLE IF NOT EXISTS decisions (
		id UUID PRIMARY KEY,
		cycle_id VARCHAR(64) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		action_type VARCHAR(16) NOT NULL,
		priority VARCHAR(16) NOT NULL,
		recommended_quantity INTEGER NOT NULL,
		supplier_id VARCHAR(64),
		estimated_cost NUMERIC(14, 2) NOT NULL,
		confidence_score NUMERIC(4, 2) NOT NULL,
		requires_approval BOOLEAN NOT NULL,
		approval_status VARCHAR(24) NOT NULL,
		expected_delivery_days INTEGER NOT NULL,
		reasoning TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		UNIQUE (cycle_id, sku)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id UUID PRIMARY KEY,
		cycle_id VARCHAR(64) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		threshold_type VARCHAR(24) NOT NULL,
		days_until_stockout INTEGER NOT NULL,
		alert_tier VARCHAR(16) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		UNIQUE (cycle_id, sku)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
}

// RunMigrations applies the schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			log.Error().Err(err).Int("index", i).Msg("migration failed")
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	log.Info().Int("count", len(migrations)).Msg("migrations completed")
	return nil
}
