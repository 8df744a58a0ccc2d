package handler

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/pawfam/backend/internal/observability/metrics"
	"github.com/pawfam/backend/internal/security/audit"
	"github.com/pawfam/backend/internal/security/middleware"
	"github.com/pawfam/backend/internal/security/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries everything the HTTP surface is built from
type RouterConfig struct {
	Auth     *AuthHandler
	Daycare  *DaycareHandler
	Orders   *OrderHandler
	Adoption *AdoptionHandler
	Health   *HealthHandler

	Authenticator middleware.Authenticator
	Audit         *audit.Logger
	// APILimiter buckets authenticated calls per user, AuthLimiter buckets
	// the public auth endpoints per client address.
	APILimiter  *ratelimit.Limiter
	AuthLimiter *ratelimit.Limiter

	CORSOrigins []string
	// TrustedProxies are the peers allowed to set X-Forwarded-For
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Logger         *slog.Logger
}

// NewRouter registers every route and wraps the mux in the shared
// middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewLogger(log)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = middleware.DefaultMaxBodyBytes
	}

	client := middleware.NewClientAddr(cfg.TrustedProxies)
	public := func(h http.HandlerFunc) http.Handler {
		if cfg.AuthLimiter == nil {
			return h
		}
		return middleware.RateLimit(cfg.AuthLimiter, client.ByClientIP, "auth", log)(h)
	}
	mws := []middleware.Middleware{middleware.RequireAuth(cfg.Authenticator, cfg.Audit, log)}
	if cfg.APILimiter != nil {
		mws = append(mws, middleware.RateLimit(cfg.APILimiter, client.ByActor, "api", log))
	}
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, mws...)
	}

	mux := http.NewServeMux()

	if a := cfg.Auth; a != nil {
		mux.Handle("POST /api/auth/register", public(a.Register))
		mux.Handle("POST /api/auth/login", public(a.Login))
		mux.Handle("POST /api/auth/vendor/register", public(a.VendorRegister))
		mux.Handle("POST /api/auth/vendor/login", public(a.VendorLogin))
		mux.Handle("POST /api/auth/forgot-password", public(a.ForgotPassword))
		mux.Handle("POST /api/auth/reset-password", public(a.ResetPassword))
		mux.Handle("GET /api/auth/me", protected(a.Me))
	}

	if d := cfg.Daycare; d != nil {
		mux.Handle("POST /api/daycare/bookings", protected(d.Create))
		mux.Handle("GET /api/daycare/bookings", protected(d.List))
		mux.Handle("GET /api/daycare/bookings/{id}", protected(d.Get))
		mux.Handle("PUT /api/daycare/bookings/{id}", protected(d.Update))
		mux.Handle("DELETE /api/daycare/bookings/{id}", protected(d.Delete))
		mux.Handle("PATCH /api/daycare/bookings/{id}/status", protected(d.UpdateStatus))
		mux.Handle("PATCH /api/daycare/bookings/{id}/cancel", protected(d.Cancel))
	}

	if o := cfg.Orders; o != nil {
		mux.Handle("POST /api/products/orders", protected(o.Create))
		mux.Handle("GET /api/products/orders", protected(o.List))
		mux.Handle("GET /api/products/orders/{id}", protected(o.Get))
		mux.Handle("DELETE /api/products/orders/{id}", protected(o.Delete))
		mux.Handle("PATCH /api/products/orders/{id}/status", protected(o.UpdateStatus))
		mux.Handle("PATCH /api/products/orders/{id}/cancel", protected(o.Cancel))
		mux.Handle("PUT /api/products/orders/{id}/address", protected(o.UpdateAddress))
	}

	if ad := cfg.Adoption; ad != nil {
		mux.Handle("POST /api/adoption/applications", protected(ad.Create))
		mux.Handle("GET /api/adoption/applications", protected(ad.List))
		mux.Handle("GET /api/adoption/applications/{id}", protected(ad.Get))
		mux.Handle("PUT /api/adoption/applications/{id}", protected(ad.Update))
		mux.Handle("DELETE /api/adoption/applications/{id}", protected(ad.Delete))
		mux.Handle("PATCH /api/adoption/applications/{id}/status", protected(ad.UpdateStatus))
		mux.Handle("PATCH /api/adoption/applications/{id}/revoke", protected(ad.Revoke))
	}

	if h := cfg.Health; h != nil {
		mux.HandleFunc("GET /healthz", h.Health)
		mux.HandleFunc("GET /readyz", h.Ready)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	// metrics sits directly on the mux so it can read the matched pattern
	return middleware.Chain(metrics.HTTPMetricsMiddleware(mux),
		middleware.Recover(log),
		middleware.RequestID(),
		middleware.Logging(log),
		middleware.CORS(cfg.CORSOrigins),
		middleware.SanitizeInputs(log),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.MaxBodySize(cfg.MaxBodyBytes),
		middleware.ValidateJSONContentType(log),
	)
}
