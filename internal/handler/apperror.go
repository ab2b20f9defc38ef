package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Role is not allowed to perform this action"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInactiveProduct    = &AppError{http.StatusUnprocessableEntity, "INACTIVE_PRODUCT", "Product is inactive"}
	ErrInsufficientStock  = &AppError{http.StatusConflict, "INSUFFICIENT_STOCK", "Insufficient stock"}
	ErrOverpayment        = &AppError{http.StatusUnprocessableEntity, "OVERPAYMENT_REJECTED", "Payment exceeds outstanding amount"}
	ErrNotOnCredit        = &AppError{http.StatusConflict, "ORDER_NOT_ON_CREDIT", "Order is not on credit"}
	ErrStatusTransition   = &AppError{http.StatusConflict, "INVALID_STATUS_TRANSITION", "Order status does not allow this action"}
	ErrAlreadyCanceled    = &AppError{http.StatusConflict, "ORDER_ALREADY_CANCELED", "Order is already canceled"}
	ErrEmptyOrderItems    = &AppError{http.StatusBadRequest, "EMPTY_ORDER_ITEMS", "Order must have at least one item"}
	ErrInvalidAmount      = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be positive and within range"}
	ErrInvalidQuantity    = &AppError{http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be a positive integer"}
	ErrInvalidID          = &AppError{http.StatusBadRequest, "INVALID_ID", "Identifier must not be empty"}
	ErrVersionConflict    = &AppError{http.StatusConflict, "VERSION_CONFLICT", "Resource was modified concurrently, please retry"}
	ErrDuplicateOrder     = &AppError{http.StatusConflict, "DUPLICATE_ORDER", "Order already exists"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
