package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/devibrahimzy/OpticienPro-app/internal/app"
	"github.com/devibrahimzy/OpticienPro-app/internal/catalog"
	"github.com/devibrahimzy/OpticienPro-app/internal/insurance"
	"github.com/devibrahimzy/OpticienPro-app/internal/inventory"
	"github.com/devibrahimzy/OpticienPro-app/internal/invoicing"
	"github.com/devibrahimzy/OpticienPro-app/internal/observability"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/cache"
	"github.com/devibrahimzy/OpticienPro-app/internal/platform/db"
	"github.com/devibrahimzy/OpticienPro-app/internal/sales"
	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.DBMigrateOnStart || *migrateOnly {
		version, err := db.Migrate(cfg.PGDSN)
		if err != nil {
			logger.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database schema ready", slog.Uint64("version", uint64(version)))
	}
	if *migrateOnly {
		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	checks := map[string]app.Pinger{"postgres": pool}
	metrics := observability.NewMetrics()

	opts := sales.ServiceOptions{
		Logger:  logger,
		Audit:   shared.NewAuditLogger(pool),
		Catalog: catalog.NewRepository(pool),
		Metrics: metrics,
	}

	redisClient, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis unavailable, idempotency keys disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		opts.Idempotency = shared.NewIdempotencyGuard(redisClient, cfg.IdempotencyTTL)
		checks["redis"] = redisPinger(redisClient)
	}

	inventoryService := inventory.NewService(inventory.NewRepository(pool), logger)
	insuranceService := insurance.NewService(insurance.NewRepository(pool), logger)
	invoiceService := invoicing.NewService(invoicing.NewRepository(pool))
	saleService := sales.NewService(sales.NewRepository(pool, cfg.DBLockTimeout), opts)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		Checks:           checks,
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		InsuranceHandler: insurance.NewHandler(logger, insuranceService),
		SalesHandler:     sales.NewHandler(logger, saleService, cfg.Locale()),
		InvoiceHandler:   invoicing.NewHandler(logger, invoiceService, cfg.Locale()),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.AppShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func redisPinger(client *redis.Client) app.Pinger {
	return app.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
