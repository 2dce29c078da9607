// Package app wires configuration into a running replenishment engine. Both
// the server and the operator CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/andresuchdata/restock-engine/internal/cache"
	"github.com/andresuchdata/restock-engine/internal/config"
	"github.com/andresuchdata/restock-engine/internal/explain"
	"github.com/andresuchdata/restock-engine/internal/explain/llm"
	"github.com/andresuchdata/restock-engine/internal/notify"
	"github.com/andresuchdata/restock-engine/internal/pipeline"
	"github.com/andresuchdata/restock-engine/internal/replenishment"
	"github.com/andresuchdata/restock-engine/internal/repository"
	"github.com/andresuchdata/restock-engine/internal/repository/csvfile"
	"github.com/andresuchdata/restock-engine/internal/repository/memory"
	"github.com/andresuchdata/restock-engine/internal/repository/postgres"
	"github.com/andresuchdata/restock-engine/internal/service"
	"github.com/andresuchdata/restock-engine/internal/storage"
	"github.com/andresuchdata/restock-engine/internal/telemetry"
)

// Options adjust what Build connects to.
type Options struct {
	// DataDir overrides the configured CSV catalog directory. It is only used
	// when the database is disabled.
	DataDir string
	// Catalog replaces every configured catalog source.
	Catalog repository.CatalogReader
	// SkipMigrations leaves the schema alone on startup.
	SkipMigrations bool
}

type App struct {
	Config    *config.Config
	Catalog   repository.CatalogReader
	Decisions repository.DecisionStore
	Engine    *replenishment.Engine
	Cycle     *pipeline.Cycle
	Scheduler *pipeline.Scheduler
	Service   *service.ReplenishmentService

	closers []func(context.Context) error
}

// Build connects every enabled collaborator. On error everything opened so
// far is closed again.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	var cycleOpts []pipeline.CycleOption
	var genaiMetrics *telemetry.GenAIMetrics

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Environment: cfg.App.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		a.onClose(tp.Shutdown)

		cycleMetrics, err := telemetry.NewCycleMetrics(tp.Meter)
		if err != nil {
			return nil, fmt.Errorf("cycle metrics: %w", err)
		}
		cycleOpts = append(cycleOpts, pipeline.WithMetrics(cycleMetrics))

		if genaiMetrics, err = telemetry.NewGenAIMetrics(tp.Meter); err != nil {
			return nil, fmt.Errorf("genai metrics: %w", err)
		}
		log.Info().Str("endpoint", cfg.Telemetry.Endpoint).Msg("telemetry enabled")
	}

	var runs pipeline.RunStore
	switch {
	case opts.Catalog != nil:
		a.Catalog = opts.Catalog
		a.Decisions = memory.NewDecisionStore()
	case cfg.Database.Enabled:
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		a.onClose(func(context.Context) error { return db.Close() })

		if !opts.SkipMigrations {
			if err := postgres.RunMigrations(ctx, db.DB); err != nil {
				return nil, err
			}
		}
		a.Catalog = postgres.NewCatalogRepository(db)
		a.Decisions = postgres.NewDecisionRepository(db)
		runs = pipeline.NewRepository(db.DB)
		cycleOpts = append(cycleOpts, pipeline.WithRunStore(runs))
	default:
		dir := opts.DataDir
		if dir == "" {
			dir = cfg.App.DataDir
		}
		catalog, err := csvfile.Load(dir)
		if err != nil {
			return nil, fmt.Errorf("csv catalog: %w", err)
		}
		log.Info().Str("dir", dir).Msg("using CSV catalog")
		a.Catalog = catalog
		a.Decisions = memory.NewDecisionStore()
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.onClose(func(context.Context) error { return client.Close() })

		a.Catalog = cache.NewCachedCatalog(a.Catalog, cache.NewSupplierCache(client, cache.SupplierTTL(cfg.Cache)))
		cycleOpts = append(cycleOpts, pipeline.WithLocker(cache.NewCycleLock(client, cfg.Cache.LockKey)))
	}

	sinks := []replenishment.Sink{notify.LogSink{}, notify.NewRepositorySink(a.Decisions)}

	if cfg.Storage.Enabled {
		store, err := storage.NewMinioClient(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx, cfg.Storage.Region); err != nil {
			return nil, err
		}
		sinks = append(sinks, notify.NewNotarySink(storage.NewNotary(store)))
	}

	if cfg.PubSub.Enabled {
		pub, err := notify.NewGooglePublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.CredentialsFile, cfg.PubSub.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		sink := notify.NewPubSubSink(pub, notify.Topics{
			Decisions: cfg.PubSub.DecisionsTopic,
			Alerts:    cfg.PubSub.AlertsTopic,
			Orders:    cfg.PubSub.OrdersTopic,
		})
		// closers run in reverse: stopping the topics flushes, then acks drain
		a.onClose(sink.Close)
		a.onClose(func(context.Context) error { return pub.Close() })
		sinks = append(sinks, sink)
	}

	var engineOpts []replenishment.EngineOption
	if cfg.LLM.Enabled {
		summarizer, err := newSummarizer(cfg.LLM, genaiMetrics)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, replenishment.WithExplanationGenerator(summarizer, cfg.Replenishment.ExplainTimeout))
	}

	a.Engine, err = replenishment.NewEngine(cfg.Policy(), nil, engineOpts...)
	if err != nil {
		return nil, err
	}

	pipelineCfg := cfg.Pipeline()
	a.Cycle = pipeline.NewCycle(a.Engine, a.Catalog, notify.NewMultiSink(sinks...), pipelineCfg, cycleOpts...)
	a.Scheduler = pipeline.NewScheduler(a.Cycle, pipelineCfg)
	a.Service = service.NewReplenishmentService(a.Scheduler, a.Decisions, runs)

	return a, nil
}

// newSummarizer builds the LLM client. The configured primary provider is
// tried first; the other one, when it has a key, is the fallback.
func newSummarizer(cfg config.LLMConfig, metrics *telemetry.GenAIMetrics) (*explain.Summarizer, error) {
	type candidate struct {
		provider llm.Provider
		model    string
	}
	var openaiC, anthropicC *candidate
	if cfg.OpenAIAPIKey != "" {
		openaiC = &candidate{llm.NewOpenAIProvider(cfg.OpenAIAPIKey), cfg.OpenAIModel}
	}
	if cfg.AnthropicAPIKey != "" {
		anthropicC = &candidate{llm.NewAnthropicProvider(cfg.AnthropicAPIKey), cfg.AnthropicModel}
	}

	primary, fallback := openaiC, anthropicC
	if cfg.PrimaryProvider == "anthropic" {
		primary, fallback = anthropicC, openaiC
	}
	if primary == nil {
		primary, fallback = fallback, nil
	}
	if primary == nil {
		return nil, errors.New("llm: no provider has an API key")
	}

	client := &llm.Client{
		Primary:         primary.provider,
		Tracer:          otel.Tracer("github.com/andresuchdata/restock-engine/internal/explain/llm"),
		Metrics:         metrics,
		PrimaryProvider: primary.provider.Name(),
	}
	if fallback != nil {
		client.Fallback = fallback.provider
		client.FallbackProviderName = fallback.provider.Name()
		client.FallbackModel = fallback.model
	}

	log.Info().
		Str("primary", client.PrimaryProvider).
		Str("fallback", client.FallbackProviderName).
		Msg("explanation generator enabled")

	return explain.NewSummarizer(client, primary.model, cfg.MaxTokens), nil
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close releases collaborators in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
