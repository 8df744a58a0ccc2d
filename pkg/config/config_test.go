package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.UsesDevSecret())
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 0.0001)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.UsesDevSecret())
}

func TestLoadReportsEveryBadValue(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "TOKEN_TTL")
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1,::ffff:198.51.100.7")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
		netip.MustParsePrefix("198.51.100.7/32"),
	}, cfg.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,proxy.internal")
	_, err = load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGO_DATABASE=fromfile\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv sets the variable directly; register it so the test env is restored
	t.Setenv("MONGO_DATABASE", "")
	require.NoError(t, os.Unsetenv("MONGO_DATABASE"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", cfg.MongoDatabase)
}
