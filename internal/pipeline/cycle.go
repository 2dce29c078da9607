package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/restock-engine/internal/domain"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository"
)

const tracerName = "github.com/andresuchdata/restock-engine/internal/pipeline"

// snapshotConcurrency bounds concurrent sales window reads while building
// the cycle snapshot.
const snapshotConcurrency = 8

// Cycle runs one pass of the replenishment pipeline over the whole catalog.
type Cycle struct {
	engine  *replenishment.Engine
	catalog repository.CatalogReader
	sink    replenishment.Sink
	cfg     Config

	runs    RunStore
	lock    Locker
	metrics Metrics
	tracer  trace.Tracer

	now   func() time.Time
	newID func() string
}

// CycleOption configures optional Cycle collaborators.
type CycleOption func(*Cycle)

func WithRunStore(s RunStore) CycleOption { return func(c *Cycle) { c.runs = s } }
func WithLocker(l Locker) CycleOption     { return func(c *Cycle) { c.lock = l } }
func WithMetrics(m Metrics) CycleOption   { return func(c *Cycle) { c.metrics = m } }

// WithClock overrides the cycle's time source.
func WithClock(now func() time.Time) CycleOption { return func(c *Cycle) { c.now = now } }

// WithIDGenerator overrides how cycle ids are generated.
func WithIDGenerator(f func() string) CycleOption { return func(c *Cycle) { c.newID = f } }

// NewCycle creates a replenishment cycle
func NewCycle(engine *replenishment.Engine, catalog repository.CatalogReader, sink replenishment.Sink, cfg Config, opts ...CycleOption) *Cycle {
	c := &Cycle{
		engine:  engine,
		catalog: catalog,
		sink:    sink,
		cfg:     cfg,
		metrics: noopMetrics{},
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// snapshot is the immutable input of one cycle.
type snapshot struct {
	items     []domain.InventoryItem
	suppliers []domain.SupplierProfile
	sales     map[string][]domain.SalesRecord
	salesErrs map[string]error
}

type itemOutcome struct {
	result  *replenishment.ItemResult
	err     error
	skipped bool
}

// Run executes one cycle. stop may be nil; when it is closed, items not yet
// started are reported as skipped and in-flight items finish.
//
// The returned error is non-nil only for cycle-level failures, which always
// wrap replenishment.ErrCollaboratorUnavailable.
func (c *Cycle) Run(ctx context.Context, stop <-chan struct{}) (*CycleResult, error) {
	startedAt := c.now()
	result := &CycleResult{
		Run: CycleRun{
			ID:        c.newID(),
			StartedAt: startedAt,
			Status:    StatusRunning,
		},
	}
	logger := log.With().Str("cycle_id", result.Run.ID).Logger()

	ctx, span := c.tracer.Start(ctx, "replenishment.cycle", trace.WithAttributes(
		attribute.String("cycle.id", result.Run.ID),
	))
	defer span.End()

	if c.lock != nil {
		release, ok, err := c.lock.TryLock(ctx, c.lockTTL())
		if err != nil {
			logger.Warn().Err(err).Msg("cycle lock unavailable, running without it")
		} else if !ok {
			logger.Info().Msg("cycle lock held elsewhere, skipping cycle")
			result.Run.Status = StatusSkipped
			c.complete(ctx, result, startedAt)
			span.SetAttributes(attribute.String("cycle.status", string(StatusSkipped)))
			return result, nil
		} else {
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn().Err(err).Msg("failed to release cycle lock")
				}
			}()
		}
	}

	c.createRun(ctx, &result.Run)

	snap, err := c.takeSnapshot(ctx, startedAt)
	if err != nil {
		return c.fail(ctx, span, result, startedAt, err)
	}
	result.Run.TotalItems = len(snap.items)
	logger.Info().Int("items", len(snap.items)).Int("suppliers", len(snap.suppliers)).Msg("cycle snapshot taken")

	outcomes := c.evaluate(ctx, stop, snap, result.Run.ID, startedAt)
	c.collect(ctx, result, snap, outcomes)

	published, failedPublishes := c.publish(ctx, result)
	if published > 0 && failedPublishes == published {
		err := replenishment.Unavailable("decision sink", fmt.Errorf("all %d publishes failed", published))
		return c.fail(ctx, span, result, startedAt, err)
	}

	result.Run.Status = StatusCompleted
	c.complete(ctx, result, startedAt)

	span.SetAttributes(
		attribute.String("cycle.status", string(result.Run.Status)),
		attribute.Int("cycle.items", result.Run.TotalItems),
		attribute.Int("cycle.decisions", result.Run.Decisions),
		attribute.Int("cycle.failed", result.Run.Failed),
		attribute.Int("cycle.skipped", result.Run.Skipped),
	)
	logger.Info().
		Int("items", result.Run.TotalItems).
		Int("decisions", result.Run.Decisions).
		Int("alerts", result.Run.Alerts).
		Int("failed", result.Run.Failed).
		Int("skipped", result.Run.Skipped).
		Dur("duration", result.Run.Duration()).
		Msg("cycle completed")

	return result, nil
}

func (c *Cycle) lockTTL() time.Duration {
	if c.cfg.LockTTL > 0 {
		return c.cfg.LockTTL
	}
	return c.cfg.MaxCycleDuration + time.Minute
}

// takeSnapshot reads items, suppliers and every item's sales window once.
func (c *Cycle) takeSnapshot(ctx context.Context, asOf time.Time) (*snapshot, error) {
	items, err := c.catalog.ListItems(ctx)
	if err != nil {
		return nil, replenishment.Unavailable("catalog", fmt.Errorf("list items: %w", err))
	}

	suppliers, err := c.catalog.ListSuppliers(ctx)
	if err != nil {
		return nil, replenishment.Unavailable("catalog", fmt.Errorf("list suppliers: %w", err))
	}

	snap := &snapshot{
		items:     items,
		suppliers: make([]domain.SupplierProfile, 0, len(suppliers)),
		sales:     make(map[string][]domain.SalesRecord, len(items)),
		salesErrs: make(map[string]error),
	}
	for _, sp := range suppliers {
		if err := replenishment.ValidateSupplier(sp); err != nil {
			log.Warn().Err(err).Str("supplier_id", sp.ID).Msg("dropping invalid supplier for this cycle")
			continue
		}
		snap.suppliers = append(snap.suppliers, sp)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		sku := item.SKU
		if seen[sku] {
			continue
		}
		seen[sku] = true

		g.Go(func() error {
			sales, err := c.catalog.SalesWindow(gctx, sku, c.cfg.SalesWindowDays, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if replenishment.IsDataError(err) {
					snap.salesErrs[sku] = err
					return nil
				}
				return fmt.Errorf("sales window for %s: %w", sku, err)
			}
			snap.sales[sku] = sales
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, replenishment.Unavailable("catalog", err)
	}

	return snap, nil
}

// evaluate runs the per-item pipeline on a worker pool. Results land in a
// slice indexed like snap.items so collection needs no locking.
func (c *Cycle) evaluate(ctx context.Context, stop <-chan struct{}, snap *snapshot, cycleID string, asOf time.Time) []itemOutcome {
	outcomes := make([]itemOutcome, len(snap.items))
	if len(snap.items) == 0 {
		return outcomes
	}

	deadlineCtx := ctx
	if c.cfg.MaxCycleDuration > 0 {
		var cancel context.CancelFunc
		deadlineCtx, cancel = context.WithTimeout(ctx, c.cfg.MaxCycleDuration)
		defer cancel()
	}

	workerCount := c.cfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	// Duplicate SKUs would produce two decisions for one item; every
	// occurrence after the first is rejected.
	firstIndex := make(map[string]int, len(snap.items))
	for i, item := range snap.items {
		if _, dup := firstIndex[item.SKU]; !dup {
			firstIndex[item.SKU] = i
		}
	}

	jobs := make(chan int, len(snap.items))
	var wg sync.WaitGroup

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if halted(deadlineCtx, stop) {
					outcomes[i] = itemOutcome{skipped: true}
					continue
				}
				item := snap.items[i]
				if firstIndex[item.SKU] != i {
					outcomes[i] = itemOutcome{err: &replenishment.DataError{SKU: item.SKU, Field: "sku", Reason: "duplicate sku in catalog"}}
					continue
				}
				outcomes[i] = c.evaluateItem(deadlineCtx, snap, item, cycleID, asOf)
			}
		}()
	}

	for i := range snap.items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// evaluateItem isolates one item: errors and panics become a per-item error.
func (c *Cycle) evaluateItem(ctx context.Context, snap *snapshot, item domain.InventoryItem, cycleID string, asOf time.Time) (out itemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = itemOutcome{err: fmt.Errorf("panic evaluating sku %s: %v", item.SKU, r)}
		}
	}()

	if err, ok := snap.salesErrs[item.SKU]; ok {
		return itemOutcome{err: err}
	}

	res, err := c.engine.Evaluate(replenishment.ItemInput{
		CycleID:    cycleID,
		AsOf:       asOf,
		Item:       item,
		Sales:      snap.sales[item.SKU],
		Suppliers:  snap.suppliers,
		WindowDays: c.cfg.SalesWindowDays,
	})
	if err != nil {
		return itemOutcome{err: err}
	}

	c.engine.Explain(ctx, item, res)
	return itemOutcome{result: res}
}

func halted(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// collect gathers outcomes into the result and orders the output by
// priority, most urgent first, then by SKU.
func (c *Cycle) collect(ctx context.Context, result *CycleResult, snap *snapshot, outcomes []itemOutcome) {
	for i, o := range outcomes {
		sku := snap.items[i].SKU
		switch {
		case o.skipped:
			result.Skipped = append(result.Skipped, sku)
		case o.err != nil:
			result.Errors = append(result.Errors, ItemError{SKU: sku, Err: o.err})
			reason := "error"
			if replenishment.IsDataError(o.err) {
				reason = "data_error"
			}
			c.metrics.RecordItemFailure(ctx, reason)
			log.Error().Err(o.err).Str("cycle_id", result.Run.ID).Str("sku", sku).Msg("item evaluation failed")
		default:
			result.Decisions = append(result.Decisions, o.result.Decision)
			if o.result.Alert != nil {
				result.Alerts = append(result.Alerts, *o.result.Alert)
			}
		}
	}

	sort.SliceStable(result.Decisions, func(i, j int) bool {
		a, b := result.Decisions[i], result.Decisions[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.SKU < b.SKU
	})
	sort.SliceStable(result.Alerts, func(i, j int) bool {
		a, b := result.Alerts[i], result.Alerts[j]
		if a.Tier.Rank() != b.Tier.Rank() {
			return a.Tier.Rank() > b.Tier.Rank()
		}
		return a.SKU < b.SKU
	})

	result.Run.Processed = len(result.Decisions)
	result.Run.Failed = len(result.Errors)
	result.Run.Skipped = len(result.Skipped)
	result.Run.Decisions = len(result.Decisions)
	result.Run.Alerts = len(result.Alerts)

	if len(result.Skipped) > 0 {
		c.metrics.RecordSkipped(ctx, len(result.Skipped))
		log.Warn().Str("cycle_id", result.Run.ID).Int("skipped", len(result.Skipped)).Msg("cycle halted before all items were processed")
	}
}

// publish hands the output to the sink. Failures are logged and counted, never
// returned.
func (c *Cycle) publish(ctx context.Context, result *CycleResult) (attempted, failed int) {
	for _, d := range result.Decisions {
		c.metrics.RecordDecision(ctx, string(d.Priority), string(d.ActionType), string(d.ApprovalStatus))
		if c.sink == nil {
			continue
		}
		attempted++
		if err := c.sink.PublishDecision(ctx, d); err != nil {
			failed++
			log.Warn().Err(err).Str("cycle_id", d.CycleID).Str("sku", d.SKU).Msg("failed to publish decision")
		}
	}
	for _, a := range result.Alerts {
		c.metrics.RecordAlert(ctx, string(a.ThresholdType), string(a.Tier))
		if c.sink == nil {
			continue
		}
		attempted++
		if err := c.sink.PublishAlert(ctx, a); err != nil {
			failed++
			log.Warn().Err(err).Str("cycle_id", a.CycleID).Str("sku", a.SKU).Msg("failed to publish alert")
		}
	}
	return attempted, failed
}

func (c *Cycle) fail(ctx context.Context, span trace.Span, result *CycleResult, startedAt time.Time, err error) (*CycleResult, error) {
	result.Run.Status = StatusFailed
	result.Run.ErrorMessage = err.Error()
	c.complete(ctx, result, startedAt)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error().Err(err).Str("cycle_id", result.Run.ID).Msg("cycle failed")

	if !errors.Is(err, replenishment.ErrCollaboratorUnavailable) {
		err = replenishment.Unavailable("cycle", err)
	}
	return result, err
}

func (c *Cycle) complete(ctx context.Context, result *CycleResult, startedAt time.Time) {
	completedAt := c.now()
	result.Run.CompletedAt = &completedAt
	c.metrics.RecordCycle(ctx, string(result.Run.Status), completedAt.Sub(startedAt))
	if result.Run.Status != StatusSkipped {
		c.updateRun(ctx, &result.Run)
	}
}

func (c *Cycle) createRun(ctx context.Context, run *CycleRun) {
	if c.runs == nil {
		return
	}
	if err := c.runs.CreateCycleRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("cycle_id", run.ID).Msg("failed to record cycle run")
	}
}

func (c *Cycle) updateRun(ctx context.Context, run *CycleRun) {
	if c.runs == nil {
		return
	}
	if err := c.runs.UpdateCycleRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn().Err(err).Str("cycle_id", run.ID).Msg("failed to update cycle run")
	}
}
