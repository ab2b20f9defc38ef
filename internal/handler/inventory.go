package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
	"github.com/josh-kwaku/toko-backend/internal/service/inventory"
)

type inventoryService interface {
	GetItem(ctx context.Context, productID domain.EntityID) (*domain.InventoryItem, error)
	ReceiveStock(ctx context.Context, actor domain.Actor, reqs []inventory.StockRequest) error
	AdjustStock(ctx context.Context, actor domain.Actor, req inventory.AdjustRequest) (*domain.InventoryItem, error)
}

type InventoryHandler struct {
	inventory inventoryService
}

func NewInventoryHandler(inventory inventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

type inventoryItemDTO struct {
	ProductID domain.EntityID `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toInventoryItemDTO(i *domain.InventoryItem) inventoryItemDTO {
	return inventoryItemDTO{
		ProductID: i.ProductID,
		Quantity:  i.Quantity,
		UpdatedAt: i.UpdatedAt,
	}
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	productID, appErr := entityIDFromPath(r, "productId")
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	item, err := h.inventory.GetItem(r.Context(), productID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toInventoryItemDTO(item))
}

type receiptLineRequest struct {
	ProductID   string  `json:"product_id"`
	Quantity    int64   `json:"quantity"`
	ReferenceID *string `json:"reference_id"`
}

type receiveStockRequest struct {
	Reason string               `json:"reason"`
	Items  []receiptLineRequest `json:"items"`
}

func (r receiveStockRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "required"})
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

func (h *InventoryHandler) Receive(w http.ResponseWriter, r *http.Request) {
	actor, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req receiveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	reqs := make([]inventory.StockRequest, 0, len(req.Items))
	productIDs := make([]domain.EntityID, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := domain.ParseEntityID(item.ProductID)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		reqs = append(reqs, inventory.StockRequest{
			ProductID:   productID,
			Quantity:    domain.MustQuantity(item.Quantity),
			Reason:      req.Reason,
			ReferenceID: item.ReferenceID,
		})
		productIDs = append(productIDs, productID)
	}

	if err := h.inventory.ReceiveStock(r.Context(), actor, reqs); err != nil {
		logging.FromContext(r.Context()).Warn("stock receipt failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	out := make([]inventoryItemDTO, 0, len(productIDs))
	for _, id := range productIDs {
		item, err := h.inventory.GetItem(r.Context(), id)
		if err != nil {
			RespondDomainError(w, err)
			return
		}
		out = append(out, toInventoryItemDTO(item))
	}
	RespondSuccess(w, http.StatusCreated, out)
}

type adjustStockRequest struct {
	ProductID string `json:"product_id"`
	Delta     int64  `json:"delta"`
	Reason    string `json:"reason"`
}

func (r adjustStockRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ProductID == "" {
		errs = append(errs, FieldError{Field: "product_id", Message: "required"})
	}
	if r.Delta == math.MinInt64 {
		errs = append(errs, FieldError{Field: "delta", Message: "out of range"})
	}
	return errs
}

func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, appErr := actorFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	productID, err := domain.ParseEntityID(req.ProductID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	item, err := h.inventory.AdjustStock(r.Context(), actor, inventory.AdjustRequest{
		ProductID: productID,
		Delta:     req.Delta,
		Reason:    req.Reason,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("stock adjustment failed", "product_id", productID, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toInventoryItemDTO(item))
}
