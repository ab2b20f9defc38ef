package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

// SeedUser inserts a user whose password is "password123".
func SeedUser(t *testing.T, db *sql.DB, email string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

func Actor(u *domain.User) domain.Actor {
	return domain.Actor{ID: domain.MustEntityID(u.ID.String()), Role: u.Role}
}

func SeedProduct(t *testing.T, db *sql.DB, id, name string, price int64) domain.Product {
	t.Helper()

	p := domain.Product{
		ID:        domain.MustEntityID(id),
		Name:      name,
		Unit:      "pcs",
		Price:     price,
		IsActive:  true,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO products (id, name, unit, price, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Unit, p.Price, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
	return p
}

func SeedStock(t *testing.T, db *sql.DB, productID string, qty int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO inventory_items (product_id, quantity, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		productID, qty,
	)
	if err != nil {
		t.Fatalf("seed stock %s: %v", productID, err)
	}
}

func StockQuantity(t *testing.T, db *sql.DB, productID string) int64 {
	t.Helper()

	var qty int64
	err := db.QueryRow(`SELECT quantity FROM inventory_items WHERE product_id = $1`, productID).Scan(&qty)
	if err != nil {
		t.Fatalf("get stock %s: %v", productID, err)
	}
	return qty
}

func CountMovements(t *testing.T, db *sql.DB, productID string, typ domain.MovementType) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM stock_movements WHERE product_id = $1 AND type = $2`,
		productID, typ,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count movements %s/%s: %v", productID, typ, err)
	}
	return count
}
