package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/cooper538/eshop-demo-sub000/api/handler"
	"github.com/cooper538/eshop-demo-sub000/internal/config"
	"github.com/cooper538/eshop-demo-sub000/internal/infrastructure/monitor"
	pgInfra "github.com/cooper538/eshop-demo-sub000/internal/infrastructure/postgres"
	"github.com/cooper538/eshop-demo-sub000/internal/infrastructure/rabbitmq"
	redisInfra "github.com/cooper538/eshop-demo-sub000/internal/infrastructure/redis"
	"github.com/cooper538/eshop-demo-sub000/internal/messaging"
	"github.com/cooper538/eshop-demo-sub000/internal/router"
	"github.com/cooper538/eshop-demo-sub000/internal/services"
	"github.com/cooper538/eshop-demo-sub000/internal/services/lifecycle"
	"github.com/cooper538/eshop-demo-sub000/pkg/clock"
	"github.com/cooper538/eshop-demo-sub000/pkg/httpcontext"
	"github.com/cooper538/eshop-demo-sub000/pkg/logger"
	"github.com/cooper538/eshop-demo-sub000/repository/postgres"
	redisRepo "github.com/cooper538/eshop-demo-sub000/repository/redis"
	"github.com/cooper538/eshop-demo-sub000/usecase"
	inventoryUC "github.com/cooper538/eshop-demo-sub000/usecase/inventory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	broker, err := rabbitmq.NewClient(cfg.RabbitMQ, zapLogger)
	if err != nil {
		zapLogger.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	manager.Register("rabbitmq", func(ctx context.Context) error {
		return broker.Close()
	})

	mon := monitor.New(pool, redisClient, broker, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	stockRepo := postgres.NewStockRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	inboxRepo := postgres.NewInboxRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	availabilityCache := redisRepo.NewAvailabilityCache(redisClient, cfg.Redis.CacheTTL)

	dispatcher := usecase.NewEventDispatcher(zapLogger)
	executor := usecase.NewExecutor(
		postgres.NewUnitOfWorkFactory(pool, availabilityCache, zapLogger),
		dispatcher,
		zapLogger,
	)

	inventory := inventoryUC.New(
		stockRepo,
		productRepo,
		availabilityCache,
		executor,
		clock.System(),
		cfg.Reservation.TTL,
		zapLogger,
	)
	inventory.RegisterEventHandlers(dispatcher)

	sweeper := services.NewExpirationSweeper(inventory, mon, zapLogger, services.SweeperConfig{
		Interval:  cfg.Sweeper.Interval,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	sweeper.Start()
	manager.Register("expiration_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	if err := broker.DeclareQueue(cfg.RabbitMQ.EventsQueue); err != nil {
		zapLogger.Fatal("events queue declaration failed", zap.Error(err))
	}
	relay := services.NewOutboxRelay(outboxRepo, broker, mon, zapLogger, services.RelayConfig{
		Interval:  cfg.Outbox.Interval,
		BatchSize: cfg.Outbox.BatchSize,
		Queue:     cfg.RabbitMQ.EventsQueue,
	})
	relay.Start()
	manager.Register("outbox_relay", func(ctx context.Context) error {
		relay.Stop(ctx)
		return nil
	})

	orderPlaced := messaging.NewListener(
		broker,
		cfg.RabbitMQ.OrderQueue,
		messaging.NewOrderPlacedConsumer(inventory, inboxRepo, executor, zapLogger),
		zapLogger,
	)
	if err := orderPlaced.Start(appCtx); err != nil {
		zapLogger.Fatal("order placed listener failed", zap.Error(err))
	}

	orderCancelled := messaging.NewListener(
		broker,
		cfg.RabbitMQ.CanceledQueue,
		messaging.NewOrderCancelledConsumer(inventory, inboxRepo, executor, zapLogger),
		zapLogger,
	)
	if err := orderCancelled.Start(appCtx); err != nil {
		zapLogger.Fatal("order cancelled listener failed", zap.Error(err))
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Inventory: apiHandler.NewInventoryHandler(inventory, ctxAdapter, zapLogger),
		Health:    apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
