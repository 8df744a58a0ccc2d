package handler

import (
	"log/slog"
	"net/http"

	"github.com/pawfam/backend/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) respond(w http.ResponseWriter, status int, res *service.AuthResult, msg string) {
	writeJSON(w, status, AuthResponse{Token: res.Token, User: toUser(res.User), Message: msg})
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user registered successfully", slog.String("user_id", result.User.ID))
	h.respond(w, http.StatusCreated, result, "User registered successfully")
}

// VendorRegister handles POST /api/auth/vendor/register
func (h *AuthHandler) VendorRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.VendorRegister(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("vendor registered successfully", slog.String("user_id", result.User.ID))
	h.respond(w, http.StatusCreated, result, "Vendor registered successfully")
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respond(w, http.StatusOK, result, "Login successful")
}

// VendorLogin handles POST /api/auth/vendor/login
func (h *AuthHandler) VendorLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.authService.VendorLogin(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.respond(w, http.StatusOK, result, "Login successful")
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	user, err := h.authService.UserByID(r.Context(), a.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]UserResponse{"user": toUser(user)})
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ForgotPasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset instructions have been sent to your email"})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req service.ResetPasswordInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset, please log in"})
}
