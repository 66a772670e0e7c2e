package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/vestflow-backend/internal/adapter/grpc"
	"github.com/simaogato/vestflow-backend/internal/adapter/quotes"
	"github.com/simaogato/vestflow-backend/internal/adapter/repository/memory"
	"github.com/simaogato/vestflow-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/vestflow-backend/internal/config"
	"github.com/simaogato/vestflow-backend/internal/domain"
	"github.com/simaogato/vestflow-backend/internal/logger"
	"github.com/simaogato/vestflow-backend/internal/usecase/ledger"
	"github.com/simaogato/vestflow-backend/internal/usecase/pricing"
	"github.com/simaogato/vestflow-backend/internal/usecase/tax"
	"github.com/simaogato/vestflow-backend/internal/usecase/timeline"
	"github.com/simaogato/vestflow-backend/internal/usecase/vesting"
)

type repositories struct {
	grants  domain.GrantRepository
	sales   domain.SaleRepository
	prices  domain.PriceRepository
	closeFn func() error
}

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	plans := vesting.DefaultPlans()
	if cfg.PlansFile != "" {
		if plans, err = vesting.LoadPlans(cfg.PlansFile); err != nil {
			logger.L.Error("Failed to load vesting plans", "path", cfg.PlansFile, "error", err)
			os.Exit(1)
		}
	}

	// 2. Storage
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.L.Error("Failed to open storage", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := repos.closeFn(); err != nil {
			logger.L.Error("Failed to close storage", "error", err)
		}
	}()

	// 3. Services (use cases)
	calculator := tax.NewCalculator(tax.Rules{
		WageIncomeRate:  cfg.TaxWageRate,
		LongTermRate:    cfg.TaxLongTermRate,
		ShortTermRate:   cfg.TaxShortTermRate,
		LongTermYears:   cfg.TaxLongTermYears,
		ClampNegativeCG: cfg.TaxClampNegativeGains,
	})
	priceService := pricing.NewPriceService(repos.prices, cfg.PriceCacheTTL)
	ledgerService := ledger.NewLedgerService(repos.grants, repos.sales, priceService, plans, calculator, cfg.RequirePlanConfirmation)
	reconstructor := timeline.NewReconstructor(repos.grants, repos.sales, priceService, calculator, cfg.TimelineWorkers)

	// 4. Background jobs
	go runEvery(ctx, "vesting evaluation", cfg.VestingEvalInterval, func(ctx context.Context) error {
		_, err := ledgerService.EvaluateAllVesting(ctx)
		return err
	})
	if cfg.QuoteProviderURL != "" {
		updater := pricing.NewUpdater(priceService, repos.grants, quotes.NewClient(cfg.QuoteProviderURL), cfg.QuoteRatePerSecond)
		go runEvery(ctx, "price update", cfg.PriceUpdateInterval, func(ctx context.Context) error {
			report, err := updater.UpdateAll(ctx)
			if err != nil {
				return err
			}
			for symbol, ferr := range report.Failures {
				logger.L.Warn("Price update failed for symbol", "symbol", symbol, "error", ferr)
			}
			return nil
		})
	} else {
		logger.L.Info("QUOTE_PROVIDER_URL not set, automatic price updates disabled")
	}

	// 5. gRPC server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(),
			grpcadapter.RateLimitInterceptor(rate.NewLimiter(rate.Limit(cfg.RPCRatePerSecond), cfg.RPCBurst)),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	grpcadapter.RegisterEquityServiceServer(grpcServer, grpcadapter.NewServer(ledgerService, reconstructor, priceService, plans))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(grpcadapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		logger.L.Error("Failed to listen", "addr", cfg.GRPCPort, "error", err)
		os.Exit(1)
	}

	// Start server in a goroutine
	go func() {
		logger.L.Info("gRPC server listening", "addr", cfg.GRPCPort, "storage", cfg.Storage)
		if err := grpcServer.Serve(lis); err != nil {
			logger.L.Error("Failed to serve gRPC server", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.L.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	logger.L.Info("gRPC server stopped")
}

// openRepositories connects the configured storage backend
func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		logger.L.Warn("Using in-memory storage, data is lost on restart")
		return &repositories{
			grants:  memory.NewGrantRepository(),
			sales:   memory.NewSaleRepository(),
			prices:  memory.NewPriceRepository(),
			closeFn: func() error { return nil },
		}, nil
	}

	db, err := connectWithRetry(ctx, cfg.DBConnStr, 5)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		grants:  postgres.NewGrantRepository(db),
		sales:   postgres.NewSaleRepository(db),
		prices:  postgres.NewPriceRepository(db),
		closeFn: db.Close,
	}, nil
}

// connectWithRetry waits for Postgres to come up (Docker friendly)
func connectWithRetry(ctx context.Context, connStr string, attempts int) (*postgres.DB, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := postgres.NewDB(connStr)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.L.Warn("Database not ready, retrying", "attempt", i+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, lastErr
}

// runEvery runs job immediately and then on every tick until ctx is cancelled
func runEvery(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.L.Error("Background job failed", "job", name, "error", err)
		} else {
			logger.L.Debug("Background job finished", "job", name, "duration", time.Since(start))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
