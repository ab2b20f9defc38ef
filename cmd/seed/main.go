package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/toko-backend/internal/cache"
	"github.com/josh-kwaku/toko-backend/internal/config"
	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
	"github.com/josh-kwaku/toko-backend/internal/repository"
	"github.com/josh-kwaku/toko-backend/internal/service"
	"github.com/josh-kwaku/toko-backend/internal/service/inventory"
)

type demoProduct struct {
	id    string
	name  string
	unit  string
	price int64
	stock int64
}

var demoProducts = []demoProduct{
	{"BRS-5KG", "Beras Premium 5kg", "sak", 72000, 40},
	{"MNY-1L", "Minyak Goreng 1L", "botol", 17500, 60},
	{"GLA-1KG", "Gula Pasir 1kg", "pcs", 16000, 80},
	{"TLR-10", "Telur Ayam isi 10", "pack", 28000, 25},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	email := flag.String("email", os.Getenv("SEED_EMAIL"), "user email")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "user password")
	name := flag.String("name", "Admin Toko", "display name")
	role := flag.String("role", string(domain.RoleAdmin), "ADMIN or CASHIER")
	demo := flag.Bool("demo", false, "also load demo products and opening stock")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Init("toko-seed", cfg.LogLevel, cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := repository.WaitForPostgres(ctx, cfg.DatabaseURL, repository.PoolConfig{MaxOpenConns: 2, MaxIdleConns: 1}, 10, 2*time.Second)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.RunMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	users := repository.NewUserRepository(db)
	if _, err := service.NewUserService(users).CreateUser(ctx, service.CreateUserRequest{
		Email:    *email,
		Name:     *name,
		Password: *password,
		Role:     domain.Role(*role),
	}); err != nil {
		slog.Error("failed to create user", "error", err)
		os.Exit(1)
	}

	if !*demo {
		return
	}

	user, err := users.GetByEmail(ctx, *email)
	if err != nil {
		slog.Error("failed to load seeded user", "error", err)
		os.Exit(1)
	}

	if err := seedDemo(ctx, db, cfg, domain.Actor{ID: domain.MustEntityID(user.ID.String()), Role: user.Role}); err != nil {
		slog.Error("failed to seed demo data", "error", err)
		os.Exit(1)
	}
}

func seedDemo(ctx context.Context, db *sql.DB, cfg *config.Config, actor domain.Actor) error {
	products := repository.NewProductRepository(db)
	stock := repository.NewInventoryRepository(db)
	inv := inventory.NewService(stock, repository.NewAuditRepository(db))

	ids := make([]domain.EntityID, 0, len(demoProducts))
	var receipts []inventory.StockRequest
	for _, d := range demoProducts {
		id := domain.MustEntityID(d.id)
		ids = append(ids, id)

		if err := products.Upsert(ctx, &domain.Product{
			ID: id, Name: d.name, Unit: d.unit, Price: d.price, IsActive: true,
		}); err != nil {
			return fmt.Errorf("seedDemo: %w", err)
		}

		_, err := stock.GetByProductID(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			receipts = append(receipts, inventory.StockRequest{
				ProductID: id,
				Quantity:  domain.MustQuantity(d.stock),
				Reason:    "OPENING_STOCK",
			})
		case err != nil:
			return fmt.Errorf("seedDemo: %w", err)
		}
	}

	if len(receipts) > 0 {
		if err := inv.ReceiveStock(ctx, actor, receipts); err != nil {
			return fmt.Errorf("seedDemo: %w", err)
		}
	}
	slog.Info("demo data seeded", "products", len(ids), "stocked", len(receipts))

	if cfg.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	return cache.NewCatalogCache(rdb, products, cfg.CatalogCacheTTL).Invalidate(ctx, ids...)
}
