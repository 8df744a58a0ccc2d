package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/observability/metrics"
	"github.com/pawfam/backend/internal/security/audit"
	"github.com/pawfam/backend/internal/security/auth"
	"github.com/pawfam/backend/internal/security/ratelimit"
)

// Middleware decorates a handler
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one is outermost
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Authenticator resolves a bearer token into the acting user
type Authenticator interface {
	Authenticate(token string) (domain.Actor, error)
}

type actorKey struct{}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored by RequireAuth
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// stores the actor in the request context otherwise.
func RequireAuth(a Authenticator, auditLog *audit.Logger, log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			token, err := auth.ExtractToken(header)
			if err != nil {
				auditLog.LogDenied(r.Context(), "", "malformed authorization header")
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			actor, err := a.Authenticate(token)
			if err != nil {
				log.Debug("token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				auditLog.LogDenied(r.Context(), "", "invalid token")
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// KeyFunc picks the rate limit bucket for a request
type KeyFunc func(r *http.Request) string

// ByClientIP buckets requests by client address
func (c ClientAddr) ByClientIP(r *http.Request) string {
	return c.IP(r)
}

// ByActor buckets authenticated requests by user and falls back to the
// client address.
func (c ClientAddr) ByActor(r *http.Request) string {
	if a, ok := ActorFrom(r.Context()); ok && a.UserID != "" {
		return "user:" + a.UserID
	}
	return "ip:" + c.IP(r)
}

// RateLimit answers 429 once the bucket chosen by key is empty
func RateLimit(limiter *ratelimit.Limiter, key KeyFunc, scope string, log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if !limiter.Allow(k) {
				metrics.ObserveRateLimited(scope)
				log.Warn("rate limit exceeded",
					slog.String("scope", scope),
					slog.String("key", k),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientAddr resolves the address a request came from. X-Forwarded-For is
// consulted only when the peer is one of the trusted proxies.
type ClientAddr struct {
	trusted []netip.Prefix
}

// NewClientAddr creates a resolver trusting the given proxy ranges
func NewClientAddr(trusted []netip.Prefix) ClientAddr {
	return ClientAddr{trusted: trusted}
}

func (c ClientAddr) isTrusted(addr netip.Addr) bool {
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// IP returns the peer address, or behind trusted proxies the nearest
// X-Forwarded-For hop that is not itself a trusted proxy.
func (c ClientAddr) IP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !c.isTrusted(peer.Unmap()) {
		return host
	}

	client := host
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		client = hop.Unmap().String()
		if !c.isTrusted(hop.Unmap()) {
			break
		}
	}
	return client
}

const maxRequestIDLen = 64

// RequestID propagates X-Request-ID, generating one when absent, and makes
// it available to audit records.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), id)))
		})
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (rw *recorder) WriteHeader(code int) {
	if !rw.wrote {
		rw.status = code
		rw.wrote = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	if !rw.wrote {
		rw.status = http.StatusOK
		rw.wrote = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *recorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Logging writes one line per completed request
func Logging(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", audit.RequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Recover turns a handler panic into a 500
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					log.Error("panic serving request",
						slog.String("request_id", audit.RequestID(r.Context())),
						slog.String("path", r.URL.Path),
						slog.Any("panic", v),
						slog.String("stack", string(debug.Stack())),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds handler run time. Requests that run past d get 503.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		h := http.TimeoutHandler(next, d, `{"error":"request timed out"}`+"\n")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(jsonDefault{w}, r)
		})
	}
}

// jsonDefault labels responses that carry no Content-Type as JSON. The
// timeout reply is written straight to it.
type jsonDefault struct {
	http.ResponseWriter
}

func (w jsonDefault) WriteHeader(code int) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}

// CORS honours the configured origins. "*" allows any origin.
func CORS(allowed []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "Idempotent-Replayed, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
