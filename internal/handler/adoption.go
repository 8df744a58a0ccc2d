package handler

import (
	"log/slog"
	"net/http"

	"github.com/pawfam/backend/internal/service"
)

// AdoptionHandler serves /api/adoption/applications
type AdoptionHandler struct {
	svc    *service.AdoptionService
	logger *slog.Logger
}

// NewAdoptionHandler creates a new adoption application handler
func NewAdoptionHandler(svc *service.AdoptionService, logger *slog.Logger) *AdoptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdoptionHandler{svc: svc, logger: logger}
}

type applicationEnvelope struct {
	Message     string              `json:"message,omitempty"`
	Application ApplicationResponse `json:"application"`
}

// Create handles POST /api/adoption/applications
func (h *AdoptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.CreateApplicationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	app, replayed, err := h.svc.Create(r.Context(), a, req, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, createdStatus(w, replayed), applicationEnvelope{
		Message:     "Adoption application submitted successfully",
		Application: toApplication(app),
	})
}

// List handles GET /api/adoption/applications?search=&sort=
func (h *AdoptionHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	apps, err := h.svc.List(r.Context(), a, q.Get("search"), q.Get("sort"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapAll(apps, toApplication))
}

// Get handles GET /api/adoption/applications/{id}
func (h *AdoptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	app, err := h.svc.Get(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationEnvelope{Application: toApplication(app)})
}

// UpdateStatus handles PATCH /api/adoption/applications/{id}/status
func (h *AdoptionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	app, err := h.svc.UpdateStatus(r.Context(), a, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationEnvelope{Message: "Application status updated", Application: toApplication(app)})
}

// Revoke handles PATCH /api/adoption/applications/{id}/revoke
func (h *AdoptionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	app, err := h.svc.Revoke(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationEnvelope{Message: "Application withdrawn", Application: toApplication(app)})
}

// Update handles PUT /api/adoption/applications/{id}
func (h *AdoptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req service.UpdateApplicationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	app, err := h.svc.Update(r.Context(), a, r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationEnvelope{Message: "Application updated successfully", Application: toApplication(app)})
}

// Delete handles DELETE /api/adoption/applications/{id}
func (h *AdoptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	app, err := h.svc.Delete(r.Context(), a, r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Application deleted successfully",
		"deletedApplication": map[string]string{
			"id":      app.ID,
			"petName": app.Pet.Name,
		},
	})
}
