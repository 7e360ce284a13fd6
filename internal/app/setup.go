package app

import (
	"context"
	"fmt"

	"github.com/hivetrader/sessionbot/internal/control"
	"github.com/hivetrader/sessionbot/internal/execution"
	"github.com/hivetrader/sessionbot/internal/feed"
	"github.com/hivetrader/sessionbot/internal/scheduler"
	"github.com/hivetrader/sessionbot/internal/storage"
	"github.com/hivetrader/sessionbot/pkg/cache"
	"github.com/hivetrader/sessionbot/pkg/config"
	"github.com/hivetrader/sessionbot/pkg/healthprobe"
	"github.com/hivetrader/sessionbot/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker(cfg)

	marketCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	marketFeed := setupFeed(cfg, logger, marketCache)

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	controlState := control.New(cfg, logger)
	if opts.AutoStart {
		controlState.Start()
	}

	hub := httpserver.NewHub(logger)

	sched := setupScheduler(cfg, logger, controlState, marketFeed, store, hub, healthChecker)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, controlState, sched, store, hub)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		marketCache:   marketCache,
		feed:          marketFeed,
		store:         store,
		controlState:  controlState,
		hub:           hub,
		scheduler:     sched,
		httpServer:    httpServer,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// setupHealthChecker wires liveness to the scheduler heartbeat: a loop that
// has not beaten for several poll intervals reports degraded.
func setupHealthChecker(cfg *config.Config) *healthprobe.HealthChecker {
	return healthprobe.New(6 * cfg.PricePollInterval)
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupFeed(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache) *feed.Feed {
	client := feed.NewClient(&feed.ClientConfig{
		GammaURL:    cfg.GammaAPIURL,
		DataURL:     cfg.DataAPIURL,
		FetchLimit:  cfg.MarketFetchLimit,
		TradesLimit: cfg.TradesFetchLimit,
		Timeout:     cfg.FeedFetchTimeout,
		Logger:      logger,
	})

	return feed.New(&feed.Config{
		Client:           client,
		Cache:            marketCache,
		TopicKeyword:     cfg.MarketTopicKeyword,
		DurationKeywords: cfg.MarketDurationKeywords,
		RefreshTTL:       cfg.MarketRefreshInterval,
		Logger:           logger,
	})
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	if cfg.StorageMode == "postgres" {
		store, err := storage.NewPostgresStore(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}

		err = store.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("migrate postgres store: %w", err)
		}

		return store, nil
	}

	return storage.NewMemoryStore(logger), nil
}

func setupScheduler(
	cfg *config.Config,
	logger *zap.Logger,
	controlState *control.State,
	marketFeed *feed.Feed,
	store storage.Store,
	hub *httpserver.Hub,
	healthChecker *healthprobe.HealthChecker,
) *scheduler.Scheduler {
	return scheduler.New(&scheduler.Config{
		Control:      controlState,
		Feed:         marketFeed,
		Store:        store,
		Trader:       execution.NewPaperTrader(logger),
		Broadcaster:  hub,
		Heartbeat:    healthChecker,
		PollInterval: cfg.PricePollInterval,
		IdleInterval: cfg.IdlePollInterval,
		Logger:       logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	controlState *control.State,
	sched *scheduler.Scheduler,
	store storage.Store,
	hub *httpserver.Hub,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Control:       controlState,
		Status:        sched,
		Store:         store,
		Hub:           hub,
	})
}
