package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/request-tracker/internal/api/http"
	"github.com/spec-kit/request-tracker/internal/api/http/handlers"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/bootstrap"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/lifecycle"
	"github.com/spec-kit/request-tracker/internal/observability"
	"github.com/spec-kit/request-tracker/internal/persistence"
	"github.com/spec-kit/request-tracker/internal/service"
	"github.com/spec-kit/request-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrate := cfg.Store.Driver != config.StoreDriverPostgres || cfg.Postgres.RunMigrations
	stores, err := bootstrap.OpenStores(ctx, cfg, logger, migrate)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer stores.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Requests:     stores.Requests,
		Comments:     stores.Comments,
		Agents:       stores.Agents,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
		StoreTimeout: cfg.Store.Timeout(),
	})

	agentService := service.NewAgentService(stores.Agents, logger)
	if cfg.App.SeedDemoData {
		if _, err := agentService.SeedDemoAgents(ctx); err != nil {
			logger.Fatal("failed to seed demo agents", zap.Error(err))
		}
	}
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: stores.Requests,
		CommentRepo: stores.Comments,
		AgentRepo:   stores.Agents,
		Engine:      engine,
		Dispatcher:  dispatcher,
		Logger:      logger,
		SweepOnRead: cfg.Escalation.OnRead,
	})
	authService := service.NewAuthService(cfg.Auth, stores.Agents)
	notifications := worker.NewNotificationWorker(dispatcher, service.NewNotificationService(logger, cfg.Notification), 0, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(handlers.HealthConfig{
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			StoreName:   stores.Driver,
			Store:       stores,
			Redis:       redis,
			Counts:      stores.Counts,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Agents:         handlers.NewAgentsHandler(agentService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), stores.Agents),
		Metrics:        metrics,
	})

	escalations := worker.NewEscalationWorker(worker.EscalationWorkerConfig{
		Sweeper:  engine,
		Locker:   redis,
		Interval: cfg.Escalation.Interval(),
		LockTTL:  cfg.Escalation.LockTTL(),
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("store", stores.Driver))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return escalations.Run(gctx)
	})
	g.Go(func() error {
		return notifications.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service stopped with error", zap.Error(err))
	}
}
