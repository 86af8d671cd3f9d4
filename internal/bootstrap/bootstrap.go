// Package bootstrap assembles the services from configuration for the HTTP
// server, the Lambda function and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sulu/sulu-sub013/cache"
	"github.com/sulu/sulu-sub013/category"
	"github.com/sulu/sulu-sub013/config"
	"github.com/sulu/sulu-sub013/content"
	"github.com/sulu/sulu-sub013/handlers"
	"github.com/sulu/sulu-sub013/logging"
	"github.com/sulu/sulu-sub013/repository"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

// App holds the wired services
type App struct {
	Config     *config.AppConfig
	Logger     *zap.Logger
	Store      repository.Store
	Cache      cache.CacheProvider
	Strategy   *resourcelocator.Strategy
	Nodes      *content.NodeRepository
	Categories *category.Tree
}

// New reads the configuration from provider and initializes every service
func New(ctx context.Context, provider config.Provider) (*App, error) {
	cfg, err := config.GetAppConfig(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg, provider)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.StoreBackend, err)
	}

	cacheProvider, err := cache.NewProvider(cfg.CacheBackend, cfg.CacheTTL, logger)
	if err != nil {
		_ = store.Cleanup(ctx)
		return nil, err
	}

	app := Wire(store, cacheProvider, resourcelocator.NewPathResolver(cfg.PathSeparator, cfg.PathSeparators), logger)
	app.Config = cfg
	logger.Info("services initialized",
		zap.String("store", cfg.StoreBackend),
		zap.String("cache", cfg.CacheBackend),
	)
	return app, nil
}

// NewStore creates the store selected by cfg without initializing it
func NewStore(ctx context.Context, cfg *config.AppConfig, provider config.Provider) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreSQLite:
		return repository.NewSQLiteStore(cfg.SQLitePath), nil
	case config.StorePostgres:
		store, err := repository.NewPostgresStore(ctx, provider)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Wire builds the services over an initialized store
func Wire(store repository.Store, cacheProvider cache.CacheProvider, resolver *resourcelocator.PathResolver, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	strategy := resourcelocator.NewStrategy(store, resolver, cacheProvider, logger.Named("resourcelocator"))
	return &App{
		Logger:     logger,
		Store:      store,
		Cache:      cacheProvider,
		Strategy:   strategy,
		Nodes:      content.NewNodeRepository(store, strategy, logger.Named("content")),
		Categories: category.NewTree(store, logger.Named("category")),
	}
}

// Router returns the HTTP API over the app's services
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(a.Strategy, a.Nodes, a.Categories, a.Logger.Named("http"))
}

// Close releases the store and flushes the logger
func (a *App) Close(ctx context.Context) error {
	err := a.Store.Cleanup(ctx)
	_ = a.Logger.Sync()
	return err
}
