// Package app assembles the product service and its infrastructure from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foodlens/backend/config"
	"github.com/foodlens/backend/internal/domain"
	"github.com/foodlens/backend/internal/infrastructure/additives"
	"github.com/foodlens/backend/internal/infrastructure/cache"
	"github.com/foodlens/backend/internal/infrastructure/events"
	"github.com/foodlens/backend/internal/infrastructure/insights"
	"github.com/foodlens/backend/internal/infrastructure/openfoodfacts"
	"github.com/foodlens/backend/internal/infrastructure/store"
	"github.com/foodlens/backend/internal/usecase"
)

// Options adjust how the application is assembled
type Options struct {
	// WithoutStore skips opening the report database
	WithoutStore bool
	// WithoutEvents skips connecting to NATS
	WithoutEvents bool
}

// App owns the long-lived components. Call Close when done.
type App struct {
	Products  *usecase.ProductService
	Additives *additives.KnowledgeBase
	Upstream  *openfoodfacts.Client
	Cache     *cache.MemoryCache
	Store     *store.SQLiteStore
	Pruner    *store.Pruner
	Publisher *events.NATSPublisher

	logger  *slog.Logger
	closers []func() error
}

// New builds the application from cfg
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	kb, err := loadAdditives(cfg.Scoring.AdditivesFile)
	if err != nil {
		return nil, err
	}
	a.Additives = kb
	logger.Info("additive knowledge base loaded", "version", kb.Version(), "entries", kb.Len())

	a.Upstream = openfoodfacts.NewClient(openfoodfacts.ClientConfig{
		BaseURL:           cfg.OpenFoodFacts.BaseURL,
		UserAgent:         cfg.OpenFoodFacts.UserAgent,
		Timeout:           cfg.OpenFoodFacts.Timeout,
		RequestsPerMinute: float64(cfg.OpenFoodFacts.RequestsPerMinute),
		Burst:             cfg.OpenFoodFacts.Burst,
		Logger:            logger,
	})
	if cfg.Server.Environment == "development" {
		a.Upstream.SetDebug(true)
	}
	logger.Debug("upstream client ready", "base_url", cfg.OpenFoodFacts.BaseURL, "requests_per_second", float64(a.Upstream.RateLimit()))

	a.Cache = cache.NewMemoryCache(cache.MemoryCacheConfig{
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	a.closers = append(a.closers, func() error { a.Cache.Close(); return nil })

	deps := usecase.ProductServiceDeps{
		Cache:     a.Cache,
		Fetcher:   a.Upstream,
		Additives: kb,
		Insights:  newInsights(cfg.Insights, logger),
		Logger:    logger,
	}

	if cfg.Store.Enabled && !opts.WithoutStore {
		if err := a.openStore(cfg.Store); err != nil {
			a.Close()
			return nil, err
		}
		deps.Store = a.Store
	}

	if cfg.Events.NATSURL != "" && !opts.WithoutEvents {
		pub, err := events.Connect(events.NATSConfig{
			URL:     cfg.Events.NATSURL,
			Subject: cfg.Events.Subject,
			Logger:  logger,
		})
		if err != nil {
			// Events are best effort; analysis keeps working without them
			logger.Warn("event publishing disabled", "error", err)
		} else {
			a.Publisher = pub
			a.closers = append(a.closers, pub.Close)
			deps.Events = pub
		}
	}
	if deps.Events == nil {
		deps.Events = events.Noop{}
	}

	a.Products = usecase.NewProductService(deps, usecase.ProductServiceConfig{
		CacheTTL: cfg.Cache.TTL,
		Analyzer: usecase.AnalyzerConfig{
			AdditivePenaltyCap: cfg.Scoring.AdditivePenaltyCap,
			LabelBonusCap:      cfg.Scoring.LabelBonusCap,
		},
	})

	return a, nil
}

func (a *App) openStore(cfg config.StoreConfig) error {
	s, err := store.NewSQLiteStore(cfg.Path)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	a.Store = s
	a.closers = append(a.closers, s.Close)

	pruner, err := store.NewPruner(s, store.PrunerConfig{
		Schedule:  cfg.PruneSchedule,
		Retention: cfg.Retention,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("create report pruner: %w", err)
	}
	a.Pruner = pruner

	a.logger.Info("report store opened", "path", cfg.Path, "retention", cfg.Retention.String())
	return nil
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	if a.Pruner != nil {
		a.Pruner.Stop()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadAdditives(path string) (*additives.KnowledgeBase, error) {
	var (
		kb  *additives.KnowledgeBase
		err error
	)
	if path != "" {
		kb, err = additives.LoadFile(path)
	} else {
		kb, err = additives.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load additive knowledge base: %w", err)
	}
	return kb, nil
}

func newInsights(cfg config.InsightsConfig, logger *slog.Logger) domain.InsightGenerator {
	if !cfg.Enabled {
		return insights.Disabled{Reason: "insights disabled by configuration"}
	}
	return insights.New(insights.ClientConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
}
