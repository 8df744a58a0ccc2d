package handler

import (
	"log/slog"
	"net/http"

	"github.com/pawfam/backend/internal/service"
)

// DaycareHandler serves /api/daycare/bookings
type DaycareHandler struct {
	svc    *service.DaycareService
	logger *slog.Logger
}

// NewDaycareHandler creates a new daycare booking handler
func NewDaycareHandler(svc *service.DaycareService, logger *slog.Logger) *DaycareHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DaycareHandler{svc: svc, logger: logger}
}

type bookingEnvelope struct {
	Message string          `json:"message,omitempty"`
	Booking BookingResponse `json:"booking"`
}

// Create handles POST /api/daycare/bookings
func (h *DaycareHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.CreateBookingInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	booking, replayed, err := h.svc.Create(r.Context(), a, req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, createdStatus(w, replayed), bookingEnvelope{
		Message: "Daycare booking created successfully",
		Booking: toBooking(booking),
	})
}

// List handles GET /api/daycare/bookings?search=&sort=
func (h *DaycareHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	bookings, err := h.svc.List(r.Context(), a, q.Get("search"), q.Get("sort"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(bookings, toBooking))
}

// Get handles GET /api/daycare/bookings/{id}
func (h *DaycareHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	booking, err := h.svc.Get(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingEnvelope{Booking: toBooking(booking)})
}

// UpdateStatus handles PATCH /api/daycare/bookings/{id}/status
func (h *DaycareHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	booking, err := h.svc.UpdateStatus(r.Context(), a, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingEnvelope{Message: "Booking status updated", Booking: toBooking(booking)})
}

// Cancel handles PATCH /api/daycare/bookings/{id}/cancel
func (h *DaycareHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	booking, err := h.svc.Cancel(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingEnvelope{Message: "Booking cancelled successfully", Booking: toBooking(booking)})
}

// Update handles PUT /api/daycare/bookings/{id}
func (h *DaycareHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.UpdateBookingInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	booking, err := h.svc.Update(r.Context(), a, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingEnvelope{Message: "Booking updated successfully", Booking: toBooking(booking)})
}

// Delete handles DELETE /api/daycare/bookings/{id}
func (h *DaycareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	booking, err := h.svc.Delete(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Booking deleted successfully",
		"deletedBooking": map[string]string{
			"id":      booking.ID,
			"petName": booking.PetName,
		},
	})
}
