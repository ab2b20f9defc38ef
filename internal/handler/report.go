package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/service/report"
)

type reportService interface {
	SalesSummary(ctx context.Context, rng domain.DateRange) (*report.SalesSummary, error)
	CreditOutstanding(ctx context.Context, rng domain.DateRange) (*report.CreditOutstanding, error)
	CreditPayments(ctx context.Context, rng domain.DateRange) (*report.CreditPayments, error)
	LowStock(ctx context.Context, threshold int64) ([]domain.InventoryItem, error)
	StockMovements(ctx context.Context, f domain.MovementFilter) ([]domain.StockMovement, error)
}

const (
	defaultLowStockThreshold = 10
	defaultMovementLimit     = 200
	maxMovementLimit         = 1000
)

type ReportHandler struct {
	reports reportService
}

func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	out, err := h.reports.SalesSummary(r.Context(), rng)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *ReportHandler) CreditOutstanding(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	out, err := h.reports.CreditOutstanding(r.Context(), rng)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *ReportHandler) CreditPayments(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.dateRange(w, r)
	if !ok {
		return
	}
	out, err := h.reports.CreditPayments(r.Context(), rng)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, out)
}

func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	threshold := int64(defaultLowStockThreshold)
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "threshold", Message: "must be an integer"}})
			return
		}
		threshold = n
	}

	items, err := h.reports.LowStock(r.Context(), threshold)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	out := make([]inventoryItemDTO, 0, len(items))
	for i := range items {
		out = append(out, toInventoryItemDTO(&items[i]))
	}
	RespondSuccess(w, http.StatusOK, out)
}

type stockMovementDTO struct {
	ID          string              `json:"id"`
	ProductID   domain.EntityID     `json:"product_id"`
	Type        domain.MovementType `json:"type"`
	Quantity    int64               `json:"quantity"`
	Reason      string              `json:"reason"`
	ReferenceID *string             `json:"reference_id"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

func (h *ReportHandler) StockMovements(w http.ResponseWriter, r *http.Request) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	q := r.URL.Query()
	filter := domain.MovementFilter{Limit: defaultMovementLimit}
	var fields []FieldError

	if v := q.Get("product_id"); v != "" {
		id, err := domain.ParseEntityID(v)
		if err != nil {
			fields = append(fields, FieldError{Field: "product_id", Message: "must not be blank"})
		} else {
			filter.ProductID = &id
		}
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDate(v, false)
		if err != nil {
			fields = append(fields, FieldError{Field: "from", Message: "must be YYYY-MM-DD or RFC3339"})
		} else {
			filter.From = &from
		}
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDate(v, true)
		if err != nil {
			fields = append(fields, FieldError{Field: "to", Message: "must be YYYY-MM-DD or RFC3339"})
		} else {
			filter.To = &to
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxMovementLimit {
			fields = append(fields, FieldError{Field: "limit", Message: "must be between 1 and 1000"})
		} else {
			filter.Limit = n
		}
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	movements, err := h.reports.StockMovements(r.Context(), filter)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	out := make([]stockMovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, stockMovementDTO{
			ID:          m.ID.String(),
			ProductID:   m.ProductID,
			Type:        m.Type,
			Quantity:    m.Quantity.Int64(),
			Reason:      m.Reason,
			ReferenceID: m.ReferenceID,
			OccurredAt:  m.OccurredAt,
		})
	}
	RespondSuccess(w, http.StatusOK, out)
}

// dateRange reads the required from/to query parameters. It writes the
// error response itself and reports whether the handler should go on.
func (h *ReportHandler) dateRange(w http.ResponseWriter, r *http.Request) (domain.DateRange, bool) {
	if _, appErr := actorFromRequest(r); appErr != nil {
		RespondAppError(w, appErr, nil)
		return domain.DateRange{}, false
	}

	q := r.URL.Query()
	var fields []FieldError
	from, err := parseDate(q.Get("from"), false)
	if err != nil {
		fields = append(fields, FieldError{Field: "from", Message: "required, YYYY-MM-DD or RFC3339"})
	}
	to, err := parseDate(q.Get("to"), true)
	if err != nil {
		fields = append(fields, FieldError{Field: "to", Message: "required, YYYY-MM-DD or RFC3339"})
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return domain.DateRange{}, false
	}
	return domain.DateRange{From: from, To: to}, true
}

// parseDate accepts a calendar day or an RFC3339 instant. A bare day used as
// an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
