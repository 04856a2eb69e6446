package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/meshbazaar/marketplace-backend/api/routes"
	"github.com/meshbazaar/marketplace-backend/internal/catalog"
	"github.com/meshbazaar/marketplace-backend/internal/orders"
	"github.com/meshbazaar/marketplace-backend/internal/payments"
	"github.com/meshbazaar/marketplace-backend/internal/wallet"
	"github.com/meshbazaar/marketplace-backend/internal/withdrawals"
	"github.com/meshbazaar/marketplace-backend/pkg/config"
	"github.com/meshbazaar/marketplace-backend/pkg/db"
	"github.com/meshbazaar/marketplace-backend/pkg/gateway"
	"github.com/meshbazaar/marketplace-backend/pkg/logger"
	"github.com/meshbazaar/marketplace-backend/pkg/metrics"
	"github.com/meshbazaar/marketplace-backend/pkg/migrate"
	"github.com/meshbazaar/marketplace-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.New(cfg.Gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	coreMetrics := metrics.NewCoreMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	withdrawalsRepo := withdrawals.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	walletService := wallet.NewService(walletRepo, withdrawalsRepo, cfg.Fees.CommissionPercent, coreMetrics)
	ordersService := orders.NewService(ordersRepo, catalogRepo, walletService, dbClient, cfg.Fees, coreMetrics)
	paymentsService := payments.NewService(paymentsRepo, gatewayClient, dbClient, coreMetrics)
	withdrawalsService := withdrawals.NewService(withdrawalsRepo, walletRepo, dbClient, cfg.Fees.WithdrawalMinimumCents, coreMetrics)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Registry:    registry,
			Orders:      ordersService,
			Payments:    paymentsService,
			Wallet:      walletService,
			Withdrawals: withdrawalsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
