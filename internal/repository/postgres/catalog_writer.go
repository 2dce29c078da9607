package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// CatalogWriter loads catalog snapshots into the database. The engine itself
// only reads the catalog; this exists for seeding and offline imports.
type CatalogWriter struct {
	db *DB
}

func NewCatalogWriter(db *DB) *CatalogWriter {
	return &CatalogWriter{db: db}
}

// SeedStats reports how many rows each table received.
type SeedStats struct {
	Items     int `json:"items"`
	Suppliers int `json:"suppliers"`
	Sales     int `json:"sales"`
}

// Seed upserts items and suppliers and replaces the sales history of every
// SKU present in sales, all in one transaction.
func (w *CatalogWriter) Seed(ctx context.Context, items []domain.InventoryItem, suppliers []domain.SupplierProfile, sales []domain.SalesRecord) (SeedStats, error) {
	var stats SeedStats
	err := w.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertItems(ctx, tx, items); err != nil {
			return err
		}
		stats.Items = len(items)

		if err := upsertSuppliers(ctx, tx, suppliers); err != nil {
			return err
		}
		stats.Suppliers = len(suppliers)

		if err := replaceSales(ctx, tx, sales); err != nil {
			return err
		}
		stats.Sales = len(sales)
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return stats, nil
}

func upsertItems(ctx context.Context, tx *sqlx.Tx, items []domain.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			sku, name, category, current_stock, min_stock_threshold,
			max_stock_capacity, unit_cost, lead_time_days, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (sku)
		DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			current_stock = EXCLUDED.current_stock,
			min_stock_threshold = EXCLUDED.min_stock_threshold,
			max_stock_capacity = EXCLUDED.max_stock_capacity,
			unit_cost = EXCLUDED.unit_cost,
			lead_time_days = EXCLUDED.lead_time_days,
			updated_at = NOW()
	`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare item statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.ExecContext(ctx,
			item.SKU, item.Name, item.Category, item.CurrentStock, item.MinStockThreshold,
			item.MaxStockCapacity, item.UnitCost, item.LeadTimeDays,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert item %s: %w", item.SKU, err)
		}
	}
	return nil
}

func upsertSuppliers(ctx context.Context, tx *sqlx.Tx, suppliers []domain.SupplierProfile) error {
	query := `
		INSERT INTO suppliers (
			id, name, reliability_score, rating_scale, average_lead_time_days,
			min_order_quantity, discount_rate, payment_terms
		) VALUES (
			:id, :name, :reliability_score, :rating_scale, :average_lead_time_days,
			:min_order_quantity, :discount_rate, :payment_terms
		)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			reliability_score = EXCLUDED.reliability_score,
			rating_scale = EXCLUDED.rating_scale,
			average_lead_time_days = EXCLUDED.average_lead_time_days,
			min_order_quantity = EXCLUDED.min_order_quantity,
			discount_rate = EXCLUDED.discount_rate,
			payment_terms = EXCLUDED.payment_terms
	`

	for _, s := range suppliers {
		if _, err := tx.NamedExecContext(ctx, query, s); err != nil {
			return fmt.Errorf("failed to upsert supplier %s: %w", s.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM supplier_specialties WHERE supplier_id = $1`, s.ID); err != nil {
			return fmt.Errorf("failed to clear specialties for %s: %w", s.ID, err)
		}
		if len(s.Specialties) == 0 {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO supplier_specialties (supplier_id, category)
			SELECT $1, UNNEST($2::text[])
			ON CONFLICT DO NOTHING
		`, s.ID, pq.Array(s.Specialties))
		if err != nil {
			return fmt.Errorf("failed to insert specialties for %s: %w", s.ID, err)
		}
	}
	return nil
}

func replaceSales(ctx context.Context, tx *sqlx.Tx, sales []domain.SalesRecord) error {
	if len(sales) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var skus []string
	for _, r := range sales {
		if _, ok := seen[r.SKU]; !ok {
			seen[r.SKU] = struct{}{}
			skus = append(skus, r.SKU)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sales_records WHERE sku = ANY($1)`, pq.Array(skus)); err != nil {
		return fmt.Errorf("failed to clear sales history: %w", err)
	}

	query := `
		INSERT INTO sales_records (sku, sale_date, quantity_sold, revenue, channel)
		VALUES (:sku, :sale_date, :quantity_sold, :revenue, :channel)
	`
	for _, r := range sales {
		if _, err := tx.NamedExecContext(ctx, query, r); err != nil {
			return fmt.Errorf("failed to insert sales record for %s: %w", r.SKU, err)
		}
	}
	return nil
}
