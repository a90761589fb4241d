package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devflow/internal/cache"
	"devflow/internal/config"
	"devflow/internal/database"
	"devflow/internal/database/memstore"
	"devflow/internal/engine"
	"devflow/internal/handlers"
	"devflow/internal/middleware"
	"devflow/internal/services"
	"devflow/internal/utils"
	"devflow/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// App owns every long-lived component of the server.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   database.Store
	cache   cache.Cache
	engine  *engine.Engine
	hub     *websocket.Hub
	server  *http.Server
	stopHub context.CancelFunc
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := utils.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Address()),
			zap.String("environment", cfg.Environment),
			zap.String("store", cfg.Database.Type),
		)
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	app.Shutdown(shutdownCtx)
}

// NewApp wires the store, cache, recorder engine, hub and HTTP server.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := cache.NewCache(ctx, cache.Config{RedisURL: cfg.Cache.RedisURL, TTL: cfg.Cache.TTL}, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	tokens, err := middleware.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		_ = c.Close()
		_ = store.Close(ctx)
		return nil, err
	}

	metrics := utils.NewMetricsCollector()
	eng := engine.NewEngine(actor.NewActorSystem(), store, metrics, logger, cfg.RecorderRetries)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub(logger)
	go hub.Run(hubCtx)

	svc := services.New(services.Deps{
		Store:     store,
		Recorder:  eng,
		Publisher: hub,
		Cache:     c,
		CacheTTL:  cfg.Cache.TTL,
		Metrics:   metrics,
		Logger:    logger,
	})

	srv := handlers.NewServer(svc, tokens, metrics, hub, logger)
	srv.CORS = middleware.DefaultCORSConfig(cfg.AllowedOrigins)
	srv.RequestTimeout = cfg.Server.RequestTimeout
	if !cfg.Server.MetricsEnabled {
		srv.Metrics = nil
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		cache:   c,
		engine:  eng,
		hub:     hub,
		stopHub: stopHub,
		server: &http.Server{
			Addr:              cfg.Address(),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (database.Store, error) {
	if cfg.Database.Type == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	mongo, err := database.NewMongoDB(ctx, database.MongoConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Name,
		ConnectTimeout: 10 * time.Second,
		MaxRetries:     cfg.Database.ConnectRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return mongo, nil
}

// Shutdown drains HTTP first so no new interactions arrive, then flushes the
// recorder before the store goes away.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	a.stopHub()

	if deadline, ok := ctx.Deadline(); ok {
		if result, err := a.engine.Flush(time.Until(deadline)); err != nil {
			a.logger.Warn("Recorder flush incomplete", zap.Error(err))
		} else {
			a.logger.Info("Recorder flushed", zap.Uint64("processed", result.Processed), zap.Uint64("failed", result.Failed))
		}
	}
	a.engine.Shutdown()

	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Cache close failed", zap.Error(err))
	}
	if err := a.store.Close(ctx); err != nil {
		a.logger.Warn("Store close failed", zap.Error(err))
	}
	a.logger.Info("Server stopped")
}
