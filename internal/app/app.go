// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/api"
	"banking-assistant/internal/assembler"
	"banking-assistant/internal/cache"
	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/database"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/common/observability"
	"banking-assistant/internal/enrichment"
	"banking-assistant/internal/fetchers"
	"banking-assistant/internal/generation"
	"banking-assistant/internal/interactions"
	"banking-assistant/internal/pipeline"
	"banking-assistant/pkg/registry"
)

// App holds the wired pipeline and the clients it owns.
type App struct {
	Config       *config.Config
	Caches       *cache.Manager
	Analyzer     *analyzer.Analyzer
	Orchestrator *enrichment.Orchestrator
	Assembler    *assembler.Assembler
	Service      *pipeline.Service
	Registry     *registry.ActivityRegistry
	Recorder     *interactions.AsyncRecorder

	Redis         *database.RedisClient
	Postgres      *database.PostgresClient
	Elasticsearch *database.ElasticsearchClient

	checks map[string]api.Pinger
	logger logger.Logger
	cancel context.CancelFunc
}

type options struct {
	connectAttempts int
	connectDelay    time.Duration
	generator       generation.Generator
	hasGenerator    bool
	obs             *observability.Observability
}

type Option func(*options)

// WithConnectAttempts sets how often a backing store connection is tried
// before startup fails.
func WithConnectAttempts(attempts int, delay time.Duration) Option {
	return func(o *options) {
		o.connectAttempts = attempts
		o.connectDelay = delay
	}
}

// WithGenerator replaces the configured generation client. A nil generator
// forces the fallback answer.
func WithGenerator(g generation.Generator) Option {
	return func(o *options) {
		o.generator = g
		o.hasGenerator = true
	}
}

func WithObservability(obs *observability.Observability) Option {
	return func(o *options) { o.obs = obs }
}

// New connects the backing stores the config asks for and wires the pipeline.
// Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	o := options{connectAttempts: 10, connectDelay: 2 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config: cfg,
		checks: make(map[string]api.Pinger),
		logger: log,
	}

	if err := a.connect(ctx, o); err != nil {
		a.closeStores()
		return nil, err
	}

	sweepCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Caches = cache.NewManager(cfg.Cache)
	a.Caches.StartSweeper(sweepCtx, log)

	fetcher := fetchers.NewFetcherFromConfig(cfg.Fetch, log)
	sources, err := buildSources(cfg.Sources, fetcher, a.Elasticsearch, log)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("build sources: %w", err)
	}

	a.Analyzer = analyzer.New()
	a.Orchestrator = enrichment.NewOrchestrator(a.Caches, sources,
		enrichment.ConfigFrom(cfg.Enrichment, cfg.Cache), log,
		enrichment.WithObservability(o.obs))
	a.Assembler = assembler.New(assembler.ConfigFrom(cfg.Assembler))

	var gen generation.Generator
	switch {
	case o.hasGenerator:
		gen = o.generator
	case cfg.Generation.BaseURL != "":
		gen = generation.NewClient(cfg.Generation, log)
	default:
		log.Warn("Generation base URL not configured, answers use the fallback text", nil)
	}

	rec, err := interactions.NewFromConfig(ctx, cfg.Interactions, a.Redis, a.Postgres)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("interactions recorder: %w", err)
	}
	a.Recorder = interactions.NewAsyncRecorder(rec, cfg.Interactions.BufferSize, log)

	a.Service = pipeline.NewService(a.Analyzer, a.Orchestrator, a.Assembler, gen,
		cfg.Assembler.ContactNumber, log,
		pipeline.WithRecorder(a.Recorder),
		pipeline.WithObservability(o.obs))

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		log.Warn("Activity registry not loaded, worker input validation is off", map[string]interface{}{
			"path":  cfg.Registry.Path,
			"error": err.Error(),
		})
	} else {
		a.Registry = reg
	}

	log.Info("Pipeline ready", map[string]interface{}{
		"locationSources":    len(sources.Locations),
		"currencySources":    len(sources.Currency),
		"interactionBackend": cfg.Interactions.Backend,
		"generation":         gen != nil,
	})
	return a, nil
}

func buildSources(cfg config.SourcesConfig, fetcher *fetchers.Fetcher, es *database.ElasticsearchClient, log logger.Logger) (*fetchers.Sources, error) {
	if es == nil {
		return fetchers.BuildSources(cfg, fetcher, nil, log)
	}
	return fetchers.BuildSources(cfg, fetcher, es.Client, log)
}

// connect opens only the stores something will use: redis and postgres for
// the interaction backend, elasticsearch for search_index sources.
func (a *App) connect(ctx context.Context, o options) error {
	cfg := a.Config

	if cfg.Interactions.Backend == interactions.BackendRedis {
		client := database.NewRedis(cfg.Database.Redis)
		if err := a.retryConnect(ctx, o, "redis", client.Ping); err != nil {
			_ = client.Close()
			return err
		}
		a.Redis = client
		a.checks["redis"] = client
	}

	if cfg.Interactions.Backend == interactions.BackendPostgres {
		var pg *database.PostgresClient
		err := a.retryConnect(ctx, o, "postgres", func(ctx context.Context) error {
			var err error
			if pg == nil {
				if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
					return err
				}
			}
			return pg.Ping(ctx)
		})
		if err != nil {
			if pg != nil {
				_ = pg.Close()
			}
			return err
		}
		a.Postgres = pg
		a.checks["postgres"] = pg
	}

	if needsSearchIndex(cfg.Sources) {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		if err := a.retryConnect(ctx, o, "elasticsearch", es.Ping); err != nil {
			return err
		}
		a.Elasticsearch = es
		a.checks["elasticsearch"] = es
	}
	return nil
}

func (a *App) retryConnect(ctx context.Context, o options, name string, ping func(context.Context) error) error {
	attempts := o.connectAttempts
	if attempts < 1 {
		attempts = 1
	}
	err := retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return ping(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(o.connectDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			a.logger.Warn("Connection failed, retrying", map[string]interface{}{
				"store":       name,
				"attempt":     n + 1,
				"maxAttempts": attempts,
				"error":       err.Error(),
			})
		}),
	)
	if err != nil {
		return fmt.Errorf("%s connection failed after %d attempts: %w", name, attempts, err)
	}
	a.logger.Info("Connected", map[string]interface{}{"store": name})
	return nil
}

func needsSearchIndex(cfg config.SourcesConfig) bool {
	for _, src := range cfg.Locations {
		if src.Kind == fetchers.KindSearchIndex {
			return true
		}
	}
	return false
}

// AddCheck registers an extra readiness check, e.g. the zeebe gateway.
func (a *App) AddCheck(name string, p api.Pinger) {
	a.checks[name] = p
}

// Handler builds the HTTP surface. Requests get a deadline below the server
// write timeout so a degraded response can still be written.
func (a *App) Handler() http.Handler {
	h := api.NewHandler(a.Service, a.Caches, a.Config.Chat.HistoryWindow, a.checks, a.logger)
	return api.NewRouter(h, a.RequestTimeout())
}

// RequestTimeout is the deadline each REST request runs under.
func (a *App) RequestTimeout() time.Duration {
	return config.GetDuration(a.Config.Server.WriteTimeout) * 4 / 5
}

// Close drains pending interaction records and closes the stores.
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if a.Recorder != nil {
		if err := a.Recorder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("interactions: %w", err))
		}
	}
	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
