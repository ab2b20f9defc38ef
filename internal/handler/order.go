package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
	"github.com/josh-kwaku/toko-backend/internal/service/sales"
)

type salesService interface {
	CreateOrder(ctx context.Context, in sales.CreateOrderInput) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor domain.Actor, orderID domain.EntityID) (*domain.Order, error)
	PayCredit(ctx context.Context, in sales.PayCreditInput) (*domain.Order, *domain.Payment, error)
	GetOrder(ctx context.Context, id domain.EntityID) (*domain.Order, error)
	ListPayments(ctx context.Context, orderID domain.EntityID) ([]domain.Payment, error)
}

type OrderHandler struct {
	sales salesService
}

func NewOrderHandler(sales salesService) *OrderHandler {
	return &OrderHandler{sales: sales}
}

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type createOrderRequest struct {
	OrderID       string             `json:"order_id"`
	Type          string             `json:"type"`
	PaymentMethod string             `json:"payment_method"`
	Items         []orderLineRequest `json:"items"`
}

func (r createOrderRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.OrderType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "must be OFFLINE or ONLINE"})
	}

	if r.PaymentMethod == "" {
		errs = append(errs, FieldError{Field: "payment_method", Message: "required"})
	} else if !domain.PaymentMethod(r.PaymentMethod).IsValid() {
		errs = append(errs, FieldError{Field: "payment_method", Message: "must be CASH or CREDIT"})
	}

	for i, item := range r.Items {
		if item.ProductID == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "required"})
		}
		if item.Quantity <= 0 {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than 0"})
		}
	}

	return errs
}

func (r createOrderRequest) lines() ([]sales.OrderLine, error) {
	lines := make([]sales.OrderLine, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := domain.ParseEntityID(item.ProductID)
		if err != nil {
			return nil, err
		}
		qty, err := domain.NewQuantity(item.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, sales.OrderLine{ProductID: productID, Quantity: qty})
	}
	return lines, nil
}

type orderItemDTO struct {
	ID          domain.EntityID `json:"id"`
	ProductID   domain.EntityID `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	UnitPrice   int64           `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
	Subtotal    int64           `json:"subtotal"`
}

type orderDTO struct {
	ID                domain.EntityID    `json:"id"`
	Type              domain.OrderType   `json:"type"`
	Status            domain.OrderStatus `json:"status"`
	TotalAmount       int64              `json:"total_amount"`
	OutstandingAmount int64              `json:"outstanding_amount"`
	Items             []orderItemDTO     `json:"items"`
	CreatedAt         time.Time          `json:"created_at"`
	CreatedBy         domain.EntityID    `json:"created_by"`
	Version           int64              `json:"version"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	items := o.Items()
	dto := orderDTO{
		ID:                o.ID(),
		Type:              o.Type(),
		Status:            o.Status(),
		TotalAmount:       o.TotalAmount().Int64(),
		OutstandingAmount: o.OutstandingAmount().Int64(),
		Items:             make([]orderItemDTO, 0, len(items)),
		CreatedAt:         o.CreatedAt(),
		CreatedBy:         o.CreatedBy(),
		Version:           o.Version(),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, orderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductNameSnapshot,
			Unit:        item.UnitSnapshot,
			UnitPrice:   item.UnitPriceSnapshot.Int64(),
			Quantity:    item.Quantity.Int64(),
			Subtotal:    item.Subtotal.Int64(),
		})
	}
	return dto
}

type paymentDTO struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    domain.EntityID `json:"order_id"`
	Amount     int64           `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
	CreatedAt  time.Time       `json:"created_at"`
	CreatedBy  domain.EntityID `json:"created_by"`
}

func toPaymentDTO(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:         p.ID,
		OrderID:    p.OrderID,
		Amount:     p.Amount.Int64(),
		OccurredAt: p.OccurredAt,
		CreatedAt:  p.CreatedAt,
		CreatedBy:  p.CreatedBy,
	}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	actor, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	lines, err := req.lines()
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	order, err := h.sales.CreateOrder(r.Context(), sales.CreateOrderInput{
		OrderID: req.OrderID,
		Type:    domain.OrderType(req.Type),
		Method:  domain.PaymentMethod(req.PaymentMethod),
		Actor:   actor,
		Lines:   lines,
	})
	if err != nil {
		log.Warn("order creation failed", "error", err)
		appErr, details := mapDomainError(err)
		if order != nil {
			// The order was stored and then failed; report where it ended up.
			if details == nil {
				details = map[string]any{}
			}
			details["order_id"] = order.ID()
			details["order_status"] = order.Status()
		}
		RespondAppError(w, appErr, details)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/orders/%s", order.ID()))
	RespondSuccess(w, http.StatusCreated, toOrderDTO(order))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	orderID, appErr := entityIDFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	order, err := h.sales.GetOrder(r.Context(), orderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("order lookup failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toOrderDTO(order))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	orderID, appErr := entityIDFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	order, err := h.sales.CancelOrder(r.Context(), actor, orderID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("order cancel failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toOrderDTO(order))
}

type payCreditRequest struct {
	Amount int64      `json:"amount"`
	PaidAt *time.Time `json:"paid_at"`
}

func (r payCreditRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type payCreditResponse struct {
	Order   orderDTO   `json:"order"`
	Payment paymentDTO `json:"payment"`
}

func (h *OrderHandler) PayCredit(w http.ResponseWriter, r *http.Request) {
	actor, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	orderID, appErr := entityIDFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req payCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	in := sales.PayCreditInput{Actor: actor, OrderID: orderID, Amount: req.Amount}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}

	order, payment, err := h.sales.PayCredit(r.Context(), in)
	if err != nil {
		logging.FromContext(r.Context()).Warn("credit payment failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, payCreditResponse{
		Order:   toOrderDTO(order),
		Payment: toPaymentDTO(payment),
	})
}

func (h *OrderHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	orderID, appErr := entityIDFromPath(r, "id")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	payments, err := h.sales.ListPayments(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	out := make([]paymentDTO, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentDTO(&payments[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}
