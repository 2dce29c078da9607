package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

// Catalog provides in-memory item, supplier and sales storage
type Catalog struct {
	mu        sync.RWMutex
	items     []domain.InventoryItem
	suppliers []domain.SupplierProfile
	sales     map[string][]domain.SalesRecord

	listErr  error
	salesErr map[string]error
}

// NewCatalog creates an empty in-memory catalog
func NewCatalog() *Catalog {
	return &Catalog{
		sales:    make(map[string][]domain.SalesRecord),
		salesErr: make(map[string]error),
	}
}

// Verify interface compliance
var _ repository.CatalogReader = (*Catalog)(nil)

// AddItems appends items to the catalog
func (c *Catalog) AddItems(items ...domain.InventoryItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, items...)
}

// AddSuppliers appends suppliers to the catalog
func (c *Catalog) AddSuppliers(suppliers ...domain.SupplierProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppliers = append(c.suppliers, suppliers...)
}

// AddSales appends sales records, grouped by SKU
func (c *Catalog) AddSales(records ...domain.SalesRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.sales[r.SKU] = append(c.sales[r.SKU], r)
	}
}

// SetError makes ListItems and ListSuppliers fail with err. Pass nil to heal.
func (c *Catalog) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// SetSalesError makes SalesWindow fail for sku.
func (c *Catalog) SetSalesError(sku string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.salesErr, sku)
		return
	}
	c.salesErr[sku] = err
}

// ListItems returns a copy of all items in insertion order
func (c *Catalog) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]domain.InventoryItem(nil), c.items...), nil
}

// ListSuppliers returns a copy of all suppliers in insertion order
func (c *Catalog) ListSuppliers(ctx context.Context) ([]domain.SupplierProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := make([]domain.SupplierProfile, len(c.suppliers))
	for i, s := range c.suppliers {
		s.Specialties = append([]string(nil), s.Specialties...)
		out[i] = s
	}
	return out, nil
}

// SalesWindow returns the sales of sku inside the window, oldest first
func (c *Catalog) SalesWindow(ctx context.Context, sku string, days int, asOf time.Time) ([]domain.SalesRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.salesErr[sku]; ok {
		return nil, err
	}

	var out []domain.SalesRecord
	for _, r := range c.sales[sku] {
		if repository.InWindow(r.Date, asOf, days) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// Sales returns every sales record, ordered by SKU then date
func (c *Catalog) Sales() []domain.SalesRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	skus := make([]string, 0, len(c.sales))
	for sku := range c.sales {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var out []domain.SalesRecord
	for _, sku := range skus {
		recs := append([]domain.SalesRecord(nil), c.sales[sku]...)
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
		out = append(out, recs...)
	}
	return out
}
