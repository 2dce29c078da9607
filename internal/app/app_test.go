package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/config"
	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/repository/memory"
)

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"items.csv": "sku,name,category,current_stock,min_stock_threshold,max_stock_capacity,unit_cost,lead_time_days\n" +
			"FIL-001,Lever arch file,FILING_STORAGE,0,20,400,4.50,5\n" +
			"PEN-001,Blue pen,WRITING_INSTRUMENTS,5000,50,8000,0.60,7\n",
		"suppliers.csv": "id,name,specialties,reliability_score,rating_scale,average_lead_time_days,min_order_quantity,discount_rate,payment_terms\n" +
			"SUP-A,Acme,FILING_STORAGE;WRITING_INSTRUMENTS,4.5,5,4,50,5,NET30\n",
		"sales.csv": "sku,date,quantity_sold,revenue,channel\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestBuild_CSVCatalog(t *testing.T) {
	cfg := config.New()
	ctx := context.Background()

	a, err := Build(ctx, cfg, Options{DataDir: writeCatalog(t)})
	require.NoError(t, err)
	defer a.Close(ctx)

	res, err := a.Scheduler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, res.Run.Status)
	require.Len(t, res.Decisions, 2)
	assert.Equal(t, "FIL-001", res.Decisions[0].SKU)

	// decisions reach the in-memory store through the repository sink
	stored, err := a.Decisions.LatestDecisions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	exp, err := a.Service.Explain(ctx, "FIL-001")
	require.NoError(t, err)
	assert.NotEmpty(t, exp.Reasoning)
}

func TestBuild_MissingDataDir(t *testing.T) {
	_, err := Build(context.Background(), config.New(), Options{DataDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv catalog")
}

func TestBuild_CatalogOverride(t *testing.T) {
	catalog := memory.NewCatalog()
	catalog.AddItems(domain.InventoryItem{
		SKU: "X-1", Category: "PAPER_PRODUCTS", CurrentStock: 500, MinStockThreshold: 10, MaxStockCapacity: 1000, LeadTimeDays: 3,
	})

	a, err := Build(context.Background(), config.New(), Options{Catalog: catalog})
	require.NoError(t, err)
	assert.Same(t, catalog, a.Catalog)

	res, err := a.Scheduler.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Decisions, 1)
	assert.True(t, res.Decisions[0].RequiresApproval || res.Decisions[0].ActionType == domain.ActionHold)
}

func TestNewSummarizer(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		_, err := newSummarizer(config.LLMConfig{Enabled: true, PrimaryProvider: "openai"}, nil)
		assert.Error(t, err)
	})

	t.Run("primary without key falls back to the other provider", func(t *testing.T) {
		s, err := newSummarizer(config.LLMConfig{
			Enabled: true, PrimaryProvider: "openai",
			AnthropicAPIKey: "test-key", AnthropicModel: "claude-3-5-haiku-latest",
		}, nil)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("both providers", func(t *testing.T) {
		s, err := newSummarizer(config.LLMConfig{
			Enabled: true, PrimaryProvider: "anthropic",
			OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini",
			AnthropicAPIKey: "test-key", AnthropicModel: "claude-3-5-haiku-latest",
		}, nil)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})
}

func TestClose_ReverseOrderAndJoinedErrors(t *testing.T) {
	var order []int
	a := &App{}
	a.onClose(func(context.Context) error { order = append(order, 1); return nil })
	a.onClose(func(context.Context) error { order = append(order, 2); return errors.New("boom") })

	err := a.Close(context.Background())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, a.Close(context.Background()))
}
