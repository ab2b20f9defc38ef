package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidAmount           = errors.New("amount must not be negative")
	ErrInvalidQuantity         = errors.New("quantity must be a positive integer")
	ErrInvalidID               = errors.New("id must not be empty")
	ErrEmptyOrderItems         = errors.New("order must have at least one item")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrAlreadyCanceled         = errors.New("order already canceled")
	ErrInactiveProduct         = errors.New("product is inactive")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOverpayment             = errors.New("payment exceeds outstanding amount")
	ErrNotOnCredit             = errors.New("order is not on credit")
	ErrForbidden               = errors.New("forbidden")
	ErrVersionConflict         = errors.New("optimistic lock conflict")
	ErrDuplicateOrder          = errors.New("order already exists")
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvariantViolation      = errors.New("aggregate invariant violated")
)

type StatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}

func (e *StatusTransitionError) Unwrap() error { return ErrInvalidStatusTransition }

type InsufficientStockError struct {
	ProductID EntityID
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
