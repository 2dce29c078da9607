package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

type catalogRepository struct {
	db *DB
}

// NewCatalogRepository returns a catalog reader over inventory_items,
// suppliers, supplier_specialties and sales_records.
func NewCatalogRepository(db *DB) repository.CatalogReader {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	query := `
		SELECT sku, name, category, current_stock, min_stock_threshold,
		       max_stock_capacity, unit_cost::float8 AS unit_cost, lead_time_days
		FROM inventory_items
		ORDER BY sku
	`

	var items []domain.InventoryItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	return items, nil
}

type supplierRow struct {
	domain.SupplierProfile
	Specialties pq.StringArray `db:"specialties"`
}

func (r *catalogRepository) ListSuppliers(ctx context.Context) ([]domain.SupplierProfile, error) {
	query := `
		SELECT s.id, s.name,
		       s.reliability_score::float8 AS reliability_score,
		       s.rating_scale,
		       s.average_lead_time_days::float8 AS average_lead_time_days,
		       s.min_order_quantity,
		       s.discount_rate::float8 AS discount_rate,
		       s.payment_terms,
		       COALESCE(array_agg(ss.category ORDER BY ss.category)
		                FILTER (WHERE ss.category IS NOT NULL), '{}') AS specialties
		FROM suppliers s
		LEFT JOIN supplier_specialties ss ON ss.supplier_id = s.id
		GROUP BY s.id
		ORDER BY s.id
	`

	var rows []supplierRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}

	suppliers := make([]domain.SupplierProfile, len(rows))
	for i, row := range rows {
		sp := row.SupplierProfile
		sp.Specialties = []string(row.Specialties)
		suppliers[i] = sp
	}
	return suppliers, nil
}

func (r *catalogRepository) SalesWindow(ctx context.Context, sku string, days int, asOf time.Time) ([]domain.SalesRecord, error) {
	from, to := repository.WindowBounds(asOf, days)
	query := `
		SELECT sku, sale_date, quantity_sold, revenue::float8 AS revenue, channel
		FROM sales_records
		WHERE sku = $1 AND sale_date >= $2 AND sale_date < $3
		ORDER BY sale_date
	`

	var sales []domain.SalesRecord
	if err := r.db.SelectContext(ctx, &sales, query, sku, from, to); err != nil {
		return nil, fmt.Errorf("failed to load sales for %s: %w", sku, err)
	}
	return sales, nil
}
