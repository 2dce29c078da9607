// internal/repository/catalog.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

// CatalogReader is the read side of the item, supplier and sales catalog.
// Implementations are expected to be fast or cached; the replenishment cycle
// calls them once per cycle to build its snapshot.
type CatalogReader interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	ListSuppliers(ctx context.Context) ([]domain.SupplierProfile, error)
	// SalesWindow returns the sales of sku in the days before asOf.
	SalesWindow(ctx context.Context, sku string, days int, asOf time.Time) ([]domain.SalesRecord, error)
}

// DecisionStore persists cycle output and serves the latest of it.
type DecisionStore interface {
	SaveDecision(ctx context.Context, d domain.Decision) error
	SaveAlert(ctx context.Context, a domain.Alert) error
	LatestDecisions(ctx context.Context, limit int) ([]domain.Decision, error)
	LatestAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
}

// WindowBounds returns the half-open range [from, to) of a sales window
// covering the given number of whole days before asOf's day.
func WindowBounds(asOf time.Time, days int) (from, to time.Time) {
	y, m, d := asOf.Date()
	to = time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	return to.AddDate(0, 0, -days), to
}

// InWindow reports whether t falls within the sales window.
func InWindow(t, asOf time.Time, days int) bool {
	from, to := WindowBounds(asOf, days)
	return !t.Before(from) && t.Before(to)
}
