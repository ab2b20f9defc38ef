package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCashier Role = "CASHIER"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleCashier
}

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   EntityID
	Role Role
}

func (a Actor) Allow(roles ...Role) error {
	if a.ID.IsZero() || !slices.Contains(roles, a.Role) {
		return fmt.Errorf("role %q: %w", a.Role, ErrForbidden)
	}
	return nil
}
