package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository/memory"
)

const (
	ItemsFile     = "items.csv"
	SuppliersFile = "suppliers.csv"
	SalesFile     = "sales.csv"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Catalog is a catalog reader loaded from a directory of CSV exports. It is
// read once; edits to the files after Load are not picked up.
type Catalog struct {
	*memory.Catalog
}

// Load reads items.csv, suppliers.csv and sales.csv from dir. Malformed item
// or supplier rows fail the load. A malformed sales row is attributed to its
// SKU, so only that item fails during a cycle.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{Catalog: memory.NewCatalog()}

	items, err := readItems(filepath.Join(dir, ItemsFile))
	if err != nil {
		return nil, err
	}
	c.AddItems(items...)

	suppliers, err := readSuppliers(filepath.Join(dir, SuppliersFile))
	if err != nil {
		return nil, err
	}
	c.AddSuppliers(suppliers...)

	sales, salesErrs, err := readSales(filepath.Join(dir, SalesFile))
	if err != nil {
		return nil, err
	}
	c.AddSales(sales...)
	for sku, e := range salesErrs {
		c.SetSalesError(sku, e)
	}

	log.Info().
		Str("dir", dir).
		Int("items", len(items)).
		Int("suppliers", len(suppliers)).
		Int("sales", len(sales)).
		Int("bad_sales_skus", len(salesErrs)).
		Msg("csv catalog loaded")
	return c, nil
}

// table is a CSV file with a header row and tolerant column lookup.
type table struct {
	path   string
	header []string
	rows   [][]string
}

func readTable(path string) (*table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: missing header row", path)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	t := &table{path: path, header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, record)
	}
	return t, nil
}

func (t *table) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func (t *table) require(names ...string) (int, error) {
	idx := t.colIndex(names...)
	if idx < 0 {
		return -1, fmt.Errorf("%s: missing column %q", t.path, names[0])
	}
	return idx, nil
}

// row wraps one record. The first parse failure is kept in err.
type row struct {
	record []string
	line   int
	err    error
}

func (r *row) get(idx int) string {
	if idx < 0 || idx >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[idx])
}

func (r *row) number(idx int, field string) float64 {
	v := strings.ReplaceAll(r.get(idx), ",", "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("line %d: %s %q is not a number", r.line, field, v)
	}
	return f
}

func (r *row) whole(idx int, field string) int {
	f := r.number(idx, field)
	if f != math.Trunc(f) && r.err == nil {
		r.err = fmt.Errorf("line %d: %s %v is not a whole number", r.line, field, f)
	}
	return int(f)
}

func (r *row) date(idx int, field string) time.Time {
	v := r.get(idx)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	if r.err == nil {
		r.err = fmt.Errorf("line %d: %s %q is not a date", r.line, field, v)
	}
	return time.Time{}
}

func readItems(path string) ([]domain.InventoryItem, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idxSKU, err := t.require("sku")
	if err != nil {
		return nil, err
	}
	idxCategory, err := t.require("category")
	if err != nil {
		return nil, err
	}
	idxName := t.colIndex("name", "product name")
	idxStock := t.colIndex("current_stock", "stock")
	idxMin := t.colIndex("min_stock_threshold", "min stock", "min_stock")
	idxMax := t.colIndex("max_stock_capacity", "max capacity", "max_stock")
	idxCost := t.colIndex("unit_cost", "cost", "hpp")
	idxLead := t.colIndex("lead_time_days", "lead time", "lead_time")

	items := make([]domain.InventoryItem, 0, len(t.rows))
	for i, record := range t.rows {
		r := &row{record: record, line: i + 2}
		item := domain.InventoryItem{
			SKU:               r.get(idxSKU),
			Name:              r.get(idxName),
			Category:          r.get(idxCategory),
			CurrentStock:      r.whole(idxStock, "current_stock"),
			MinStockThreshold: r.whole(idxMin, "min_stock_threshold"),
			MaxStockCapacity:  r.whole(idxMax, "max_stock_capacity"),
			UnitCost:          r.number(idxCost, "unit_cost"),
			LeadTimeDays:      r.whole(idxLead, "lead_time_days"),
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", path, r.err)
		}
		items = append(items, item)
	}
	return items, nil
}

func readSuppliers(path string) ([]domain.SupplierProfile, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}

	idxID, err := t.require("id", "supplier_id")
	if err != nil {
		return nil, err
	}
	idxName := t.colIndex("name", "supplier name")
	idxSpecialties := t.colIndex("specialties", "categories")
	idxScore := t.colIndex("reliability_score", "rating")
	idxScale := t.colIndex("rating_scale", "scale")
	idxLead := t.colIndex("average_lead_time_days", "lead time", "lead_time_days")
	idxMOQ := t.colIndex("min_order_quantity", "moq", "min order")
	idxDiscount := t.colIndex("discount_rate", "discount")
	idxTerms := t.colIndex("payment_terms", "terms")

	suppliers := make([]domain.SupplierProfile, 0, len(t.rows))
	for i, record := range t.rows {
		r := &row{record: record, line: i + 2}
		sp := domain.SupplierProfile{
			ID:                  r.get(idxID),
			Name:                r.get(idxName),
			Specialties:         splitSpecialties(r.get(idxSpecialties)),
			ReliabilityScore:    r.number(idxScore, "reliability_score"),
			RatingScale:         r.whole(idxScale, "rating_scale"),
			AverageLeadTimeDays: r.number(idxLead, "average_lead_time_days"),
			MinOrderQuantity:    r.whole(idxMOQ, "min_order_quantity"),
			DiscountRate:        r.number(idxDiscount, "discount_rate"),
			PaymentTerms:        r.get(idxTerms),
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", path, r.err)
		}
		suppliers = append(suppliers, sp)
	}
	return suppliers, nil
}

func readSales(path string) ([]domain.SalesRecord, map[string]error, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}

	idxSKU, err := t.require("sku")
	if err != nil {
		return nil, nil, err
	}
	idxDate, err := t.require("date", "sale_date")
	if err != nil {
		return nil, nil, err
	}
	idxQty, err := t.require("quantity_sold", "quantity", "qty")
	if err != nil {
		return nil, nil, err
	}
	idxRevenue := t.colIndex("revenue")
	idxChannel := t.colIndex("channel")

	sales := make([]domain.SalesRecord, 0, len(t.rows))
	bad := make(map[string]error)
	for i, record := range t.rows {
		r := &row{record: record, line: i + 2}
		rec := domain.SalesRecord{
			SKU:          r.get(idxSKU),
			Date:         r.date(idxDate, "date"),
			QuantitySold: r.whole(idxQty, "quantity_sold"),
			Revenue:      r.number(idxRevenue, "revenue"),
			Channel:      r.get(idxChannel),
		}
		if rec.SKU == "" {
			log.Warn().Str("file", path).Int("line", r.line).Msg("skipping sales row without sku")
			continue
		}
		if r.err != nil {
			if _, seen := bad[rec.SKU]; !seen {
				bad[rec.SKU] = &replenishment.DataError{SKU: rec.SKU, Field: "sales", Reason: r.err.Error()}
			}
			continue
		}
		sales = append(sales, rec)
	}
	return sales, bad, nil
}

func splitSpecialties(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, domain.NormalizeCategory(p))
		}
	}
	return out
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}
