package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

const productColumns = `id, name, unit, price, is_active, updated_at`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByIDs returns the products that exist; missing ids are simply absent
// from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []domain.EntityID) ([]domain.Product, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByIDs: scan: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByIDs: rows: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, unit = EXCLUDED.unit, price = EXCLUDED.price,
			is_active = EXCLUDED.is_active, updated_at = now()`,
		p.ID, p.Name, p.Unit, p.Price, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func scanProduct(s scanner) (*domain.Product, error) {
	var p domain.Product
	if err := s.Scan(&p.ID, &p.Name, &p.Unit, &p.Price, &p.IsActive, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
