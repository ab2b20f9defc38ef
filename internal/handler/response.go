package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/toko-backend/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	appErr, details := mapDomainError(err)
	RespondAppError(w, appErr, details)
}

// mapDomainError picks the public error for err. Typed errors also yield
// details naming the product or status pair involved.
func mapDomainError(err error) (*AppError, map[string]any) {
	var (
		stockErr      *domain.InsufficientStockError
		transitionErr *domain.StatusTransitionError
	)

	switch {
	case errors.As(err, &stockErr):
		return ErrInsufficientStock, map[string]any{"product_id": stockErr.ProductID}
	case errors.As(err, &transitionErr):
		return ErrStatusTransition, map[string]any{"from": transitionErr.From, "to": transitionErr.To}
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound, nil
	case errors.Is(err, domain.ErrForbidden):
		return ErrForbidden, nil
	case errors.Is(err, domain.ErrInactiveProduct):
		return ErrInactiveProduct, nil
	case errors.Is(err, domain.ErrInsufficientStock):
		return ErrInsufficientStock, nil
	case errors.Is(err, domain.ErrOverpayment):
		return ErrOverpayment, nil
	case errors.Is(err, domain.ErrNotOnCredit):
		return ErrNotOnCredit, nil
	case errors.Is(err, domain.ErrAlreadyCanceled):
		return ErrAlreadyCanceled, nil
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return ErrStatusTransition, nil
	case errors.Is(err, domain.ErrEmptyOrderItems):
		return ErrEmptyOrderItems, nil
	case errors.Is(err, domain.ErrInvalidAmount):
		return ErrInvalidAmount, nil
	case errors.Is(err, domain.ErrInvalidQuantity):
		return ErrInvalidQuantity, nil
	case errors.Is(err, domain.ErrInvalidID):
		return ErrInvalidID, nil
	case errors.Is(err, domain.ErrVersionConflict):
		return ErrVersionConflict, nil
	case errors.Is(err, domain.ErrDuplicateOrder):
		return ErrDuplicateOrder, nil
	case errors.Is(err, domain.ErrInvalidRequest):
		return ErrInvalidRequest, nil
	default:
		slog.Error("unhandled domain error", "error", err)
		return ErrInternalError, nil
	}
}
