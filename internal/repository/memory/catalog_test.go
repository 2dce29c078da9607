package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func TestCatalog_SalesWindow(t *testing.T) {
	asOf := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	c := NewCatalog()
	c.AddSales(
		domain.SalesRecord{SKU: "PEN-1", Date: asOf.AddDate(0, 0, -1), QuantitySold: 3},
		domain.SalesRecord{SKU: "PEN-1", Date: asOf.AddDate(0, 0, -40), QuantitySold: 9},
		domain.SalesRecord{SKU: "PEN-1", Date: asOf.AddDate(0, 0, -5), QuantitySold: 4},
		domain.SalesRecord{SKU: "PEN-1", Date: asOf, QuantitySold: 100}, // today, outside
		domain.SalesRecord{SKU: "INK-1", Date: asOf.AddDate(0, 0, -2), QuantitySold: 1},
	)

	got, err := c.SalesWindow(context.Background(), "PEN-1", 30, asOf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].QuantitySold)
	assert.Equal(t, 3, got[1].QuantitySold)

	got, err = c.SalesWindow(context.Background(), "NONE", 30, asOf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalog_Errors(t *testing.T) {
	c := NewCatalog()
	c.AddItems(domain.InventoryItem{SKU: "A"})

	boom := errors.New("connection refused")
	c.SetError(boom)
	_, err := c.ListItems(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = c.ListSuppliers(context.Background())
	assert.ErrorIs(t, err, boom)

	c.SetError(nil)
	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)

	c.SetSalesError("A", boom)
	_, err = c.SalesWindow(context.Background(), "A", 90, time.Now())
	assert.ErrorIs(t, err, boom)
}

func TestCatalog_ListSuppliersReturnsCopies(t *testing.T) {
	c := NewCatalog()
	c.AddSuppliers(domain.SupplierProfile{ID: "S1", Specialties: []string{"NOTEBOOKS"}})

	got, err := c.ListSuppliers(context.Background())
	require.NoError(t, err)
	got[0].Specialties[0] = "CHANGED"

	again, err := c.ListSuppliers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NOTEBOOKS", again[0].Specialties[0])
}

func TestDecisionStore_LatestNewestFirst(t *testing.T) {
	s := NewDecisionStore()
	ctx := context.Background()
	for _, id := range []string{"d1", "d2", "d3"} {
		require.NoError(t, s.SaveDecision(ctx, domain.Decision{ID: id, SKU: id}))
	}
	// re-saving replaces in place
	require.NoError(t, s.SaveDecision(ctx, domain.Decision{ID: "d1", SKU: "updated"}))

	got, err := s.LatestDecisions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d3", got[0].ID)
	assert.Equal(t, "d2", got[1].ID)

	all, err := s.LatestDecisions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "updated", all[2].SKU)

	require.NoError(t, s.SaveAlert(ctx, domain.Alert{ID: "a1"}))
	alerts, err := s.LatestAlerts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestCatalog_Sales(t *testing.T) {
	c := NewCatalog()
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c.AddSales(
		domain.SalesRecord{SKU: "B", Date: day, QuantitySold: 1},
		domain.SalesRecord{SKU: "A", Date: day.AddDate(0, 0, 1), QuantitySold: 2},
		domain.SalesRecord{SKU: "A", Date: day, QuantitySold: 3},
	)

	got := c.Sales()
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].SKU)
	assert.Equal(t, 3, got[0].QuantitySold)
	assert.Equal(t, 2, got[1].QuantitySold)
	assert.Equal(t, "B", got[2].SKU)
}
