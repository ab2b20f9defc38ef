package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Money is an amount in minor currency units. It is never negative.
type Money struct {
	amount int64
}

func NewMoney(amount int64) (Money, error) {
	if amount < 0 {
		return Money{}, fmt.Errorf("NewMoney(%d): %w", amount, ErrInvalidAmount)
	}
	return Money{amount: amount}, nil
}

func MustMoney(amount int64) Money {
	m, err := NewMoney(amount)
	if err != nil {
		panic(err)
	}
	return m
}

// Add fails rather than wrap past math.MaxInt64.
func (m Money) Add(other Money) (Money, error) {
	if m.amount > math.MaxInt64-other.amount {
		return Money{}, fmt.Errorf("Add(%d, %d): overflow: %w", m.amount, other.amount, ErrInvalidAmount)
	}
	return Money{amount: m.amount + other.amount}, nil
}

// Sub fails instead of producing a negative amount.
func (m Money) Sub(other Money) (Money, error) {
	return NewMoney(m.amount - other.amount)
}

func (m Money) Mul(q Quantity) (Money, error) {
	if m.amount != 0 && q.n > math.MaxInt64/m.amount {
		return Money{}, fmt.Errorf("Mul(%d, %d): overflow: %w", m.amount, q.n, ErrInvalidAmount)
	}
	return Money{amount: m.amount * q.n}, nil
}

func (m Money) IsZero() bool                 { return m.amount == 0 }
func (m Money) GreaterThan(other Money) bool { return m.amount > other.amount }
func (m Money) Int64() int64                 { return m.amount }
func (m Money) String() string               { return fmt.Sprintf("%d", m.amount) }
func (m Money) Value() (driver.Value, error) { return m.amount, nil }

// Quantity is a strictly positive unit count.
type Quantity struct {
	n int64
}

func NewQuantity(n int64) (Quantity, error) {
	if n <= 0 {
		return Quantity{}, fmt.Errorf("NewQuantity(%d): %w", n, ErrInvalidQuantity)
	}
	return Quantity{n: n}, nil
}

func MustQuantity(n int64) Quantity {
	q, err := NewQuantity(n)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Int64() int64                 { return q.n }
func (q Quantity) String() string               { return fmt.Sprintf("%d", q.n) }
func (q Quantity) Value() (driver.Value, error) { return q.n, nil }

// EntityID is an opaque, trimmed, non-empty identifier compared by value.
type EntityID struct {
	v string
}

func ParseEntityID(s string) (EntityID, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return EntityID{}, ErrInvalidID
	}
	return EntityID{v: trimmed}, nil
}

func MustEntityID(s string) EntityID {
	id, err := ParseEntityID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id EntityID) String() string               { return id.v }
func (id EntityID) IsZero() bool                 { return id.v == "" }
func (id EntityID) Value() (driver.Value, error) { return id.v, nil }

func (id EntityID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.v)
}

func (id *EntityID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseEntityID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Scan implements sql.Scanner for text and uuid columns.
func (id *EntityID) Scan(src any) error {
	switch v := src.(type) {
	case string:
		id.v = v
	case []byte:
		id.v = string(v)
	case nil:
		id.v = ""
	default:
		return fmt.Errorf("EntityID.Scan: unsupported type %T", src)
	}
	return nil
}
