package app

import (
	"context"
	"sync"

	"github.com/hivetrader/sessionbot/internal/control"
	"github.com/hivetrader/sessionbot/internal/feed"
	"github.com/hivetrader/sessionbot/internal/scheduler"
	"github.com/hivetrader/sessionbot/internal/storage"
	"github.com/hivetrader/sessionbot/pkg/cache"
	"github.com/hivetrader/sessionbot/pkg/config"
	"github.com/hivetrader/sessionbot/pkg/healthprobe"
	"github.com/hivetrader/sessionbot/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	marketCache   cache.Cache
	feed          *feed.Feed
	store         storage.Store
	controlState  *control.State
	hub           *httpserver.Hub
	scheduler     *scheduler.Scheduler
	httpServer    *httpserver.Server
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// AutoStart flips the run flag on at boot instead of waiting for the
	// control surface.
	AutoStart bool
}
