package domain

import "time"

// Product is the catalog view used to snapshot order lines.
type Product struct {
	ID        EntityID  `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Price     int64     `json:"price"`
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}
