package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/josh-kwaku/toko-backend/api"
	"github.com/josh-kwaku/toko-backend/internal/cache"
	"github.com/josh-kwaku/toko-backend/internal/config"
	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/handler"
	"github.com/josh-kwaku/toko-backend/internal/logging"
	"github.com/josh-kwaku/toko-backend/internal/middleware"
	"github.com/josh-kwaku/toko-backend/internal/repository"
	"github.com/josh-kwaku/toko-backend/internal/service"
	"github.com/josh-kwaku/toko-backend/internal/service/inventory"
	"github.com/josh-kwaku/toko-backend/internal/service/report"
	"github.com/josh-kwaku/toko-backend/internal/service/sales"
)

const (
	idempotencyPurgeInterval = time.Hour
	dbConnectAttempts        = 30
	specPath                 = "/docs/openapi.yaml"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("toko-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.WaitForPostgres(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}, dbConnectAttempts, time.Second)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.RunMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	reportRepo := repository.NewReportRepository(db)

	readiness := map[string]handler.Pinger{"database": db}

	var catalog productCatalog = productRepo
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		catalog = cache.NewCatalogCache(rdb, productRepo, cfg.CatalogCacheTTL)
		readiness["cache"] = redisPinger{rdb}
		slog.Info("catalog cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CatalogCacheTTL)
	}

	inventorySvc := inventory.NewService(inventoryRepo, auditRepo)
	salesSvc := sales.NewService(orderRepo, paymentRepo, catalog, inventorySvc, auditRepo)
	reportSvc := report.NewService(reportRepo, inventoryRepo)
	userSvc := service.NewUserService(userRepo)

	if len(cfg.KafkaBrokers) > 0 {
		writer := service.NewKafkaWriter(cfg.KafkaBrokers, cfg.AuditTopic)
		defer writer.Close()
		dispatcher := service.NewAuditDispatcher(auditRepo, writer, logger, service.AuditDispatcherConfig{
			Interval:    cfg.AuditDispatchInterval,
			MaxAttempts: cfg.AuditMaxAttempts,
		})
		go dispatcher.Start(ctx)
	} else {
		slog.Info("audit dispatch disabled, events stay pending")
	}

	go purgeIdempotency(ctx, idempotencyRepo)

	authHandler := handler.NewAuthHandler(userSvc, cfg.JWTSecret, cfg.JWTExpiry)
	orderHandler := handler.NewOrderHandler(salesSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	healthHandler := handler.NewHealthHandler(readiness)

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.JWTSecret)(
			middleware.Logging(
				middleware.Idempotency(idempotencyRepo)(h),
			),
		)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /ready", healthHandler.Readiness)
	mux.HandleFunc("GET /docs", handler.ServeDocs(specPath))
	mux.HandleFunc("GET "+specPath, handler.ServeSpec(api.Spec))

	mux.Handle("POST /api/v1/auth/login", middleware.Logging(http.HandlerFunc(authHandler.Login)))

	mux.Handle("POST /api/v1/orders", protected(orderHandler.Create))
	mux.Handle("GET /api/v1/orders/{id}", protected(orderHandler.Get))
	mux.Handle("POST /api/v1/orders/{id}/cancel", protected(orderHandler.Cancel))
	mux.Handle("POST /api/v1/orders/{id}/payments", protected(orderHandler.PayCredit))
	mux.Handle("GET /api/v1/orders/{id}/payments", protected(orderHandler.ListPayments))

	mux.Handle("GET /api/v1/inventory/{productId}", protected(inventoryHandler.Get))
	mux.Handle("POST /api/v1/inventory/receipts", protected(inventoryHandler.Receive))
	mux.Handle("POST /api/v1/inventory/adjustments", protected(inventoryHandler.Adjust))

	mux.Handle("GET /api/v1/reports/sales-summary", protected(reportHandler.SalesSummary))
	mux.Handle("GET /api/v1/reports/credit-outstanding", protected(reportHandler.CreditOutstanding))
	mux.Handle("GET /api/v1/reports/credit-payments", protected(reportHandler.CreditPayments))
	mux.Handle("GET /api/v1/reports/low-stock", protected(reportHandler.LowStock))
	mux.Handle("GET /api/v1/reports/stock-movements", protected(reportHandler.StockMovements))

	root := otelhttp.NewHandler(middleware.Recovery(middleware.Tracing(mux)), "toko-api")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func purgeIdempotency(ctx context.Context, repo *repository.IdempotencyRepository) {
	ticker := time.NewTicker(idempotencyPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				slog.Error("idempotency purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("idempotency records purged", "count", n)
			}
		}
	}
}

type productCatalog interface {
	GetByIDs(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error)
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
