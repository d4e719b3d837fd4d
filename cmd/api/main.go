package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/dorm-maintenance/internal/api/http"
	"github.com/spec-kit/dorm-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/dorm-maintenance/internal/cache"
	"github.com/spec-kit/dorm-maintenance/internal/config"
	"github.com/spec-kit/dorm-maintenance/internal/events"
	"github.com/spec-kit/dorm-maintenance/internal/observability"
	"github.com/spec-kit/dorm-maintenance/internal/persistence"
	"github.com/spec-kit/dorm-maintenance/internal/service"
	"github.com/spec-kit/dorm-maintenance/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Configured() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	store := pg.Store()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(service.NewActivityLogService(dispatcher, logger))
	if cfg.Events.AMQPURL != "" {
		sink, err := events.DialAMQPSink(cfg.Events.AMQPURL, cfg.Events.Exchange, cfg.Events.PublishTimeout(), logger)
		if err != nil {
			logger.Warn("event forwarding disabled", zap.Error(err))
		} else {
			defer sink.Close()
			worker.StartEventForwarder(dispatcher, sink)
		}
	}

	categoryDeps := service.CategoryDependencies{Store: store, Dispatcher: dispatcher}
	if cfg.Cache.Enabled && redis.Available() {
		categoryDeps.Cache = cache.NewCategoryCache(redis.Client, cfg.Cache.Prefix, cfg.Cache.TTL(), logger)
	}
	categoryService := service.NewCategoryService(categoryDeps)
	ticketService := service.NewTicketService(service.TicketDependencies{Store: store, Dispatcher: dispatcher})

	metrics := observability.NewMetrics()
	checks := []handlers.DependencyCheck{{Name: "store", Ping: store.Ping}}
	if categoryDeps.Cache != nil {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, checks...),
		Categories: handlers.NewCategoriesHandler(categoryService),
		Tickets:    handlers.NewTicketsHandler(ticketService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
