package handler

import (
	"log/slog"
	"net/http"

	"github.com/pawfam/backend/internal/service"
)

// OrderHandler serves /api/products/orders
type OrderHandler struct {
	svc    *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new product order handler
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{svc: svc, logger: logger}
}

type orderEnvelope struct {
	Message string        `json:"message,omitempty"`
	Order   OrderResponse `json:"order"`
}

// Create handles POST /api/products/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.CreateOrderInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	order, replayed, err := h.svc.Create(r.Context(), a, req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, createdStatus(w, replayed), orderEnvelope{Message: "Order placed successfully", Order: toOrder(order)})
}

// List handles GET /api/products/orders?search=&sort=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	orders, err := h.svc.List(r.Context(), a, q.Get("search"), q.Get("sort"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(orders, toOrder))
}

// Get handles GET /api/products/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Get(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Order: toOrder(order)})
}

// UpdateStatus handles PATCH /api/products/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	order, err := h.svc.UpdateStatus(r.Context(), a, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Message: "Order status updated", Order: toOrder(order)})
}

// Cancel handles PATCH /api/products/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Cancel(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Message: "Order cancelled successfully", Order: toOrder(order)})
}

// UpdateAddress handles PUT /api/products/orders/{id}/address
func (h *OrderHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.ShippingAddressInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	order, err := h.svc.UpdateShippingAddress(r.Context(), a, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Message: "Shipping address updated", Order: toOrder(order)})
}

// Delete handles DELETE /api/products/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	order, err := h.svc.Delete(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Order deleted successfully",
		"deletedOrder": map[string]any{
			"id":          order.ID,
			"totalAmount": money(order.TotalAmount),
		},
	})
}
