package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/security/audit"
	"github.com/pawfam/backend/internal/security/middleware"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse carries a human readable outcome
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unclassified errors are logged and hidden behind a
// generic message.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: publicMessage(err)}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "validation failed"
		resp.Fields = verr.Fields
	}

	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed",
			slog.String("request_id", audit.RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		resp.Error = "internal server error"
	case http.StatusServiceUnavailable:
		log.Warn("dependency unavailable",
			slog.String("request_id", audit.RequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		resp.Error = "service temporarily unavailable, retry later"
	}
	writeJSON(w, status, resp)
}

// publicMessage strips the sentinel prefix ("invalid state: ...") so the
// caller sees the specific reason.
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrInvalidState, domain.ErrInvalidInput, domain.ErrConflict,
		domain.ErrInvalidCredentials, domain.ErrForbidden,
	} {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

// decodeJSON reads a single JSON object into v. Unknown fields are ignored,
// so client-sent totals simply fall away.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is required", domain.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", domain.ErrInvalidInput, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", domain.ErrInvalidInput)
	}
	return nil
}

// actor returns the authenticated caller. Routes are wrapped in RequireAuth,
// so a missing actor is a wiring bug and answers 401.
func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
	}
	return a, ok
}

// StatusRequest is the body of PATCH .../status
type StatusRequest struct {
	Status string `json:"status"`
}

// IdempotencyKeyHeader names the client retry key on creates
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

func createdStatus(w http.ResponseWriter, replayed bool) int {
	if replayed {
		w.Header().Set(ReplayedHeader, "true")
		return http.StatusOK
	}
	return http.StatusCreated
}
