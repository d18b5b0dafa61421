package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godilite/swachh-scan/internal/api"
	"github.com/godilite/swachh-scan/internal/config"
	"github.com/godilite/swachh-scan/internal/web"
	"github.com/godilite/swachh-scan/pkg/cache"
	httpsrv "github.com/godilite/swachh-scan/pkg/http/server"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger     *zap.Logger
	cache      *cache.Cache
	httpServer *httpsrv.Server
	cancel     context.CancelFunc
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	client := api.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger)
	logger.Info("Backend client initialized",
		zap.String("base_url", cfg.BackendURL),
		zap.Duration("timeout", cfg.BackendTimeout))

	var facilities web.FacilityResolver = client
	var cacheClient *cache.Cache
	if cfg.CacheEnabled() {
		c, err := cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacheClient = c
		facilities = api.NewCachedFacilityResolver(client, cacheClient, logger, cfg.FacilityCacheTTL)
		logger.Info("Facility cache initialized",
			zap.String("addr", cfg.RedisAddr),
			zap.Duration("ttl", cfg.FacilityCacheTTL))
	}

	handlers := web.NewHandlers(facilities, client, client, logger, cfg.GeoTimeout)

	baseCtx, cancel := context.WithCancel(context.Background())

	httpServer, err := httpsrv.New(
		httpsrv.WithPort(cfg.HTTPPort),
		httpsrv.WithLogger(logger),
		httpsrv.WithLogging(true),
		httpsrv.WithViews(web.NewViews()),
		httpsrv.WithBaseContext(baseCtx),
	)
	if err != nil {
		cancel()
		if cacheClient != nil {
			_ = cacheClient.Close()
		}
		return nil, fmt.Errorf("failed to create HTTP server: %w", err)
	}

	httpServer.RegisterRoutes(handlers.Register)

	return &App{
		logger:     logger,
		cache:      cacheClient,
		httpServer: httpServer,
		cancel:     cancel,
	}, nil
}

// Run starts the application and blocks until a shutdown signal is received.
func (a *App) Run() error {
	a.logger.Info("application starting")

	a.httpServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return a.Shutdown(ctx)
}

// Shutdown drains the HTTP server until ctx expires, then abandons whatever
// backend calls are still running and closes the cache.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	a.cancel()

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			a.logger.Warn("shutdown completed but deadline exceeded")
		}
	default:
		a.logger.Info("graceful shutdown completed successfully")
	}

	_ = a.logger.Sync()
	return nil
}

// Addr returns the address the HTTP server listens on.
func (a *App) Addr() string {
	return a.httpServer.Addr().String()
}

// Start serves without waiting for a signal. Used by tests.
func (a *App) Start() {
	a.httpServer.Start()
}
