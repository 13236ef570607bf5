package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override used in these tests; viper treats an empty
// variable as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STOREFRONT_APP_ENV",
		"STOREFRONT_APP_PORT",
		"STOREFRONT_LOG_FORMAT",
		"STOREFRONT_UPSTREAM_BASE_URL",
		"STOREFRONT_UPSTREAM_TIMEOUT",
		"STOREFRONT_CATALOG_LIMIT",
		"STOREFRONT_SEARCH_DEBOUNCE",
		"STOREFRONT_CART_REMOVAL_POLICY",
		"STOREFRONT_TELEMETRY_SAMPLING_RATIO",
		"STOREFRONT_HTTP_CORS_ALLOW_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0o600))
	return dir
}

func TestLoadFrom(t *testing.T) {
	t.Run("defaults when no file and no env", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "storefront", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, ":8081", cfg.App.Addr())
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, "http://localhost:8080", cfg.Upstream.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, "book", cfg.Catalog.Query)
		assert.Equal(t, 100, cfg.Catalog.Limit)
		assert.Equal(t, 2*time.Second, cfg.Catalog.Wait)
		assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
		assert.Equal(t, 10, cfg.Search.Limit)
		assert.Equal(t, "keep_removed", cfg.Cart.RemovalPolicy)
		assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.Contains(t, cfg.HTTP.CORSAllowHeaders, "X-User-ID")
		assert.Equal(t, "storefront", cfg.Telemetry.ServiceName)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("reads config.toml", func(t *testing.T) {
		clearEnv(t)
		dir := writeConfig(t, `
[upstream]
base_url = "https://gateway.internal:8443"
timeout = "3s"
rate_limit = 50.0

[catalog]
query = "novel"
limit = 25

[cart]
removal_policy = "restore"

[http]
cors_allow_origins = ["https://shop.example.com"]
`)

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)

		assert.Equal(t, "https://gateway.internal:8443", cfg.Upstream.BaseURL)
		assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, 50.0, cfg.Upstream.RateLimit)
		assert.Equal(t, "novel", cfg.Catalog.Query)
		assert.Equal(t, 25, cfg.Catalog.Limit)
		assert.Equal(t, "restore", cfg.Cart.RemovalPolicy)
		assert.Equal(t, []string{"https://shop.example.com"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		clearEnv(t)
		dir := writeConfig(t, "[catalog]\nlimit = 25\n")
		t.Setenv("STOREFRONT_CATALOG_LIMIT", "40")
		t.Setenv("STOREFRONT_SEARCH_DEBOUNCE", "150ms")
		t.Setenv("STOREFRONT_CART_REMOVAL_POLICY", "two_phase")

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)

		assert.Equal(t, 40, cfg.Catalog.Limit)
		assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)
		assert.Equal(t, "two_phase", cfg.Cart.RemovalPolicy)
	})

	t.Run("production defaults to json logs", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOREFRONT_APP_ENV", "production")

		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)
		assert.True(t, cfg.App.IsProduction())
		assert.Equal(t, "json", cfg.Log.Format)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		clearEnv(t)
		dir := writeConfig(t, "[upstream\nbase_url = ")

		_, err := LoadFrom(dir)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "relative upstream", mutate: func(c *Config) { c.Upstream.BaseURL = "gateway:8080/api" }, wantErr: "upstream.base_url"},
		{name: "non-http upstream", mutate: func(c *Config) { c.Upstream.BaseURL = "ftp://gateway" }, wantErr: "upstream.base_url"},
		{name: "unknown removal policy", mutate: func(c *Config) { c.Cart.RemovalPolicy = "rollback" }, wantErr: "cart.removal_policy"},
		{name: "negative rate limit", mutate: func(c *Config) { c.Upstream.RateLimit = -1 }, wantErr: "upstream.rate_limit"},
		{name: "zero catalog limit", mutate: func(c *Config) { c.Catalog.Limit = 0 }, wantErr: "catalog.limit"},
		{name: "wildcard cors in production", mutate: func(c *Config) {
			c.App.Env = "production"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, wantErr: "cors_allow_origins"},
		{name: "wildcard cors in development", mutate: func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} }},
		{name: "sampling ratio out of range", mutate: func(c *Config) { c.Telemetry.SamplingRatio = 1.5 }, wantErr: "sampling_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
