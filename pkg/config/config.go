package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

const devJWTSecret = "pawfam-dev-secret-change-me"

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	MongoMaxPool  uint64

	// RedisURL empty selects the in-process key-value store
	RedisURL string

	JWTSecret      string
	JWTIssuer      string
	TokenTTL       time.Duration
	ResetTokenTTL  time.Duration
	UserCacheTTL   time.Duration
	IdempotencyTTL time.Duration
	RequestTimeout time.Duration

	RateLimitRPS         float64
	RateLimitBurst       int
	AuthRateLimitPerMin  int
	CORSAllowedOrigins   []string
	TrustedProxies       []netip.Prefix
	OTLPEndpoint         string
	KVFailureThreshold   int32
	KVBreakerOpenTimeout time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return load()
}

func load() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		Environment:          getEnv("ENVIRONMENT", "development"),
		ServerPort:           p.int("SERVER_PORT", 8080),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:             getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:        getEnv("MONGO_DATABASE", "pawfam"),
		MongoMaxPool:         uint64(p.int("MONGO_MAX_POOL_SIZE", 50)),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		JWTIssuer:            getEnv("JWT_ISSUER", "pawfam"),
		TokenTTL:             p.duration("TOKEN_TTL", 7*24*time.Hour),
		ResetTokenTTL:        p.duration("RESET_TOKEN_TTL", 15*time.Minute),
		UserCacheTTL:         p.duration("USER_CACHE_TTL", 30*time.Second),
		IdempotencyTTL:       p.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		RequestTimeout:       p.duration("REQUEST_TIMEOUT", 10*time.Second),
		RateLimitRPS:         p.float("RATE_LIMIT_RPS", 20),
		RateLimitBurst:       p.int("RATE_LIMIT_BURST", 40),
		AuthRateLimitPerMin:  p.int("AUTH_RATE_LIMIT_PER_MIN", 10),
		CORSAllowedOrigins:   parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		TrustedProxies:       p.prefixes("TRUSTED_PROXIES"),
		OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		KVFailureThreshold:   int32(p.int("KV_FAILURE_THRESHOLD", 5)),
		KVBreakerOpenTimeout: p.duration("KV_BREAKER_OPEN_TIMEOUT", 30*time.Second),
	}

	switch cfg.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, StoreMongo, StoreMemory))
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid SERVER_PORT: %d out of range", cfg.ServerPort))
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		cfg.JWTSecret = devJWTSecret
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// IsProduction reports whether ENVIRONMENT is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// UsesDevSecret reports whether the built-in development JWT secret is in use
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == devJWTSecret
}

// parser collects conversion errors so Load reports every bad variable at once
type parser struct {
	errs *[]error
}

func (p parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func (p parser) float(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return v
}

func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	if v <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("invalid %s: must be positive", key))
		return def
	}
	return v
}

// prefixes parses a comma separated list of CIDRs or bare addresses
func (p parser) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range parseCSVEnv(key, nil) {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			*p.errs = append(*p.errs, fmt.Errorf("invalid %s entry %q: want an IP or CIDR", key, raw))
			continue
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
