// Package app wires configuration, preferences, source adapters and publishers
// into the newsfeed runtime used by the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-newsfeed/internal/config"
	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
	"github.com/samvad-hq/samvad-newsfeed/internal/enrich"
	"github.com/samvad-hq/samvad-newsfeed/internal/feed"
	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
	"github.com/samvad-hq/samvad-newsfeed/internal/metrics"
	"github.com/samvad-hq/samvad-newsfeed/internal/preferences"
	"github.com/samvad-hq/samvad-newsfeed/internal/storage"
	"github.com/samvad-hq/samvad-newsfeed/pkg/httpclient"
	"github.com/samvad-hq/samvad-newsfeed/pkg/publishers"
	"github.com/samvad-hq/samvad-newsfeed/pkg/sources"
)

// Options selects the optional parts of the runtime.
type Options struct {
	// Publish builds the publishers listed in the publishers file.
	Publish bool
	// HTTPClient overrides the resty client shared by adapters and the enricher.
	HTTPClient httpclient.Client
}

// App is the assembled newsfeed runtime.
type App struct {
	cfg      *config.Config
	log      logger.Logger
	store    storage.Store
	prefs    *preferences.Store
	catalog  *sources.Catalog
	registry *sources.Registry
	metrics  *metrics.Recorder
	enricher feed.ArticleEnricher
	fanout   *publishers.Fanout
}

// New builds the runtime from cfg. Close must be called to release the store
// and any publisher connections.
func New(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log = logger.Ensure(log)

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	a := &App{cfg: cfg, log: log, store: store, metrics: metrics.New()}
	if err := a.init(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	prefs, err := preferences.Open(a.store, a.log)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	a.prefs = prefs

	cat, err := sources.LoadCatalog(a.cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("load sources catalog: %w", err)
	}
	a.catalog = cat

	client := opts.HTTPClient
	if client == nil {
		client = httpclient.NewRestyClient(a.cfg.HTTPTimeout)
	}
	keys := sources.APIKeys{
		NewsAPI:  a.cfg.NewsAPIKey,
		Guardian: a.cfg.GuardianKey,
		NYT:      a.cfg.NYTKey,
	}
	reg, err := sources.DefaultRegistry(cat, keys, client,
		sources.WithLogger(a.log),
		sources.WithObserver(a.metrics),
	)
	if err != nil {
		return fmt.Errorf("build source adapters: %w", err)
	}
	a.registry = reg

	enabled := cat.Enabled()
	summaries := make([]map[string]string, 0, len(enabled))
	for _, src := range enabled {
		summaries = append(summaries, map[string]string{"id": src.ID, "type": src.Type, "base_url": src.BaseURL})
	}
	a.log.InfoObj("sources catalog loaded", "sources_meta", map[string]any{
		"count":   len(summaries),
		"sources": summaries,
	})

	if a.cfg.EnrichImages {
		a.enricher = enrich.NewOGEnricher(client, 0, a.log)
	}

	if opts.Publish {
		fanout, err := buildFanout(ctx, a.cfg.PublishersFile, a.log)
		if err != nil {
			return err
		}
		a.fanout = fanout
	}
	return nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return nil, fmt.Errorf("publishing requested but publishers_file is not set")
	}
	sinks, err := publishers.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no publishers enabled in %s", path)
	}

	pubs, err := publishers.BuildAll(ctx, sinks, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]any, 0, len(sinks))
	for _, c := range sinks {
		summaries = append(summaries, map[string]any{"id": c.ID, "type": c.Type, "sources": c.Sources})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Preferences returns the persisted user selections.
func (a *App) Preferences() *preferences.Store { return a.prefs }

// Catalog returns the loaded vendor catalog.
func (a *App) Catalog() *sources.Catalog { return a.catalog }

// Metrics returns the Prometheus recorder shared by adapters and the feed.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// Publishing reports whether pages are forwarded to publishers.
func (a *App) Publishing() bool { return a.fanout.Size() > 0 }

// NewFeed builds a feed over the given sources and filters using the
// configured page size, ordering and enrichment.
func (a *App) NewFeed(active []domain.SourceID, filters domain.Filters, onChange func(feed.State)) (*feed.Feed, error) {
	return feed.New(a.registry, active, filters, feed.Options{
		PageSize:        a.cfg.PageSize,
		SortByPublished: a.cfg.SortByPublished,
		Enricher:        a.enricher,
		Metrics:         a.metrics,
		OnChange:        onChange,
		Logger:          a.log,
	})
}

// Close releases publishers and the preference store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if err := a.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.ErrorObj("storage close failed", "error", err)
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
