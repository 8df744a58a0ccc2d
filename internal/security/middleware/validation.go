package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode"
)

// DefaultMaxBodyBytes caps request bodies
const DefaultMaxBodyBytes = 1 << 20

// ValidateJSONContentType ensures POST/PUT/PATCH requests with a body are JSON
func ValidateJSONContentType(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			// bodiless PATCH .../cancel and friends
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if !strings.Contains(strings.ToLower(contentType), "application/json") {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize limits how much of a request body handlers may read
func MaxBodySize(n int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SanitizeInputs rejects control characters in query values and traversal
// patterns in the path. Search terms are matched literally downstream, so
// punctuation is left alone.
func SanitizeInputs(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for key, values := range r.URL.Query() {
				for _, val := range values {
					if strings.IndexFunc(val, unicode.IsControl) >= 0 {
						log.Warn("suspicious input detected",
							slog.String("path", r.URL.Path),
							slog.String("param", key),
						)
						writeError(w, http.StatusBadRequest, "invalid input: control characters in "+key)
						return
					}
				}
			}

			if strings.Contains(r.URL.Path, "..") || strings.Contains(r.URL.Path, "//") {
				log.Warn("suspicious path pattern detected",
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusBadRequest, "invalid path")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
