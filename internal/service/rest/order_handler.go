package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/domain"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/export"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/order"
)

const queryDateLayout = "2006-01-02"

// OrderHandler обслуживает HTTP endpoints заказов.
type OrderHandler struct {
	svc      order.Service
	exporter *export.Exporter
	logger   *log.Entry
}

// NewOrderHandler создаёт handler заказов.
func NewOrderHandler(svc order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	return &OrderHandler{
		svc:      svc,
		exporter: export.NewExporter(),
		logger:   logger,
	}
}

// RegisterRoutes регистрирует endpoints заказов на роутере.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type lineItemResponse struct {
	ID          string `json:"id"`
	ProductName string `json:"product_name"`
	Qty         int32  `json:"qty"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	ID           string             `json:"id"`
	OrderNo      string             `json:"order_no"`
	CustomerName string             `json:"customer_name"`
	OrderDate    time.Time          `json:"order_date"`
	GrandTotal   string             `json:"grand_total"`
	Products     []lineItemResponse `json:"products"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// Create обрабатывает POST /api/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// Get обрабатывает GET /api/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get order", err)
		return
	}
	if found == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(found))
}

// List обрабатывает GET /api/orders с опциональными фильтрами
// order_no (префикс номера), start и end (даты в формате YYYY-MM-DD).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	orders, err := h.svc.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, "search orders", err)
		return
	}

	resp := orderListResponse{Orders: make([]orderResponse, 0, len(orders))}
	for i := range orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update обрабатывает PUT /api/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input domain.OrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	updated, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		h.writeError(w, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Delete обрабатывает DELETE /api/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, "delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export обрабатывает GET /api/orders/export: отдаёт xlsx-файл с заказами,
// отфильтрованными так же, как в List.
func (h *OrderHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	orders, err := h.svc.Search(r.Context(), filter)
	if err != nil {
		h.writeError(w, "export orders", err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exporter.WriteTo(w, orders); err != nil {
		// заголовки уже ушли, остаётся только залогировать
		h.logger.WithError(err).Error("failed to stream xlsx export")
	}
}

func parseSearchFilter(r *http.Request) (domain.SearchFilter, error) {
	filter := domain.SearchFilter{
		OrderNoPrefix: r.URL.Query().Get("order_no"),
	}

	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(queryDateLayout, s)
		if err != nil {
			return domain.SearchFilter{}, fmt.Errorf("invalid start date, use YYYY-MM-DD")
		}
		filter.DateRange.Start = &t
	}
	if s := r.URL.Query().Get("end"); s != "" {
		t, err := time.Parse(queryDateLayout, s)
		if err != nil {
			return domain.SearchFilter{}, fmt.Errorf("invalid end date, use YYYY-MM-DD")
		}
		filter.DateRange.End = &t
	}

	return filter, nil
}

// writeError переводит ошибку сервиса в HTTP-статус.
func (h *OrderHandler) writeError(w http.ResponseWriter, op string, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		details := make([]string, 0, len(validationErr.Errs))
		for _, e := range validationErr.Errs {
			details = append(details, e.Error())
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Details: details})
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
	case errors.Is(err, domain.ErrOrderExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "order number is already taken"})
	case errors.Is(err, domain.ErrSequenceExhausted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "daily order number limit reached"})
	case errors.Is(err, domain.ErrSequenceContention):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "order number generation is busy, retry later"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "request timed out"})
	default:
		h.logger.WithError(err).Error("failed to " + op)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func toOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OrderNo:      o.OrderNo,
		CustomerName: o.CustomerName,
		OrderDate:    o.OrderDate,
		GrandTotal:   o.GrandTotal.StringFixed(2),
		Products:     make([]lineItemResponse, 0, len(o.Products)),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, item := range o.Products {
		resp.Products = append(resp.Products, lineItemResponse{
			ID:          item.ID,
			ProductName: item.ProductName,
			Qty:         item.Qty,
			Price:       item.Price.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
