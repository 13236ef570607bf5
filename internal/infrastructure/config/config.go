package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STOREFRONT_UPSTREAM_BASE_URL.
const EnvPrefix = "STOREFRONT"

// DefaultSearchPaths are the directories searched for config.toml.
var DefaultSearchPaths = []string{".", "./config", "/etc/storefront"}

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Upstream  UpstreamConfig
	Catalog   CatalogConfig
	Search    SearchConfig
	Cart      CartConfig
	Session   SessionConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// UpstreamConfig describes the API gateway that fronts the cart, order and
// search services.
type UpstreamConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64 // requests per second, 0 disables throttling
	RateBurst        int
	MaxResponseBytes int64
	UserAgent        string
}

// CatalogConfig controls the catalog slice fetched to enrich carts and orders.
type CatalogConfig struct {
	Query string
	Limit int
	// Wait bounds the enrichment fetch; on expiry the view renders with an empty index.
	Wait time.Duration
}

// SearchConfig controls live search.
type SearchConfig struct {
	Debounce time.Duration
	Limit    int
}

// CartConfig controls cart mutations.
type CartConfig struct {
	RemovalPolicy string // keep_removed, restore, two_phase
}

// SessionConfig controls the in-memory view registry.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxViews      int
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

var validRemovalPolicies = map[string]bool{
	"keep_removed": true,
	"restore":      true,
	"two_phase":    true,
}

// Load reads config.toml from DefaultSearchPaths and applies STOREFRONT_ env overrides.
func Load() (*Config, error) {
	return LoadFrom(DefaultSearchPaths...)
}

// LoadFrom is Load with explicit search paths. A missing file is not an error.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Upstream: UpstreamConfig{
			BaseURL:          v.GetString("upstream.base_url"),
			Timeout:          v.GetDuration("upstream.timeout"),
			RateLimit:        v.GetFloat64("upstream.rate_limit"),
			RateBurst:        v.GetInt("upstream.rate_burst"),
			MaxResponseBytes: v.GetInt64("upstream.max_response_bytes"),
			UserAgent:        v.GetString("upstream.user_agent"),
		},
		Catalog: CatalogConfig{
			Query: v.GetString("catalog.query"),
			Limit: v.GetInt("catalog.limit"),
			Wait:  v.GetDuration("catalog.wait"),
		},
		Search: SearchConfig{
			Debounce: v.GetDuration("search.debounce"),
			Limit:    v.GetInt("search.limit"),
		},
		Cart: CartConfig{
			RemovalPolicy: v.GetString("cart.removal_policy"),
		},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
			MaxViews:      v.GetInt("session.max_views"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8081"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.App.IsProduction() {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "http://localhost:8080"
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 10 * time.Second
	}
	if cfg.Upstream.RateBurst == 0 {
		cfg.Upstream.RateBurst = 20
	}
	if cfg.Upstream.MaxResponseBytes == 0 {
		cfg.Upstream.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = "storefront/" + cfg.App.Version
	}
	if cfg.Catalog.Query == "" {
		cfg.Catalog.Query = "book"
	}
	if cfg.Catalog.Limit == 0 {
		cfg.Catalog.Limit = 100
	}
	if cfg.Catalog.Wait == 0 {
		cfg.Catalog.Wait = 2 * time.Second
	}
	if cfg.Search.Debounce == 0 {
		cfg.Search.Debounce = 300 * time.Millisecond
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = 10
	}
	if cfg.Cart.RemovalPolicy == "" {
		cfg.Cart.RemovalPolicy = "keep_removed"
	}
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = 30 * time.Minute
	}
	if cfg.Session.SweepInterval == 0 {
		cfg.Session.SweepInterval = time.Minute
	}
	if cfg.Session.MaxViews == 0 {
		cfg.Session.MaxViews = 10000
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// An empty origin list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-User-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream.base_url must be an absolute http(s) URL, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout cannot be negative")
	}
	if c.Upstream.RateLimit < 0 {
		return fmt.Errorf("upstream.rate_limit cannot be negative")
	}
	if c.Upstream.RateBurst < 1 {
		return fmt.Errorf("upstream.rate_burst must be positive")
	}
	if c.Catalog.Limit < 1 {
		return fmt.Errorf("catalog.limit must be positive")
	}
	if c.Search.Limit < 1 {
		return fmt.Errorf("search.limit must be positive")
	}
	if c.Search.Debounce < 0 || c.Catalog.Wait < 0 {
		return fmt.Errorf("search.debounce and catalog.wait cannot be negative")
	}
	if !validRemovalPolicies[c.Cart.RemovalPolicy] {
		return fmt.Errorf("cart.removal_policy must be one of keep_removed, restore, two_phase, got %q", c.Cart.RemovalPolicy)
	}
	if c.Session.IdleTTL < 0 || c.Session.SweepInterval < 0 {
		return fmt.Errorf("session durations cannot be negative")
	}

	if c.App.Env == "production" {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (a AppConfig) Addr() string {
	return ":" + a.Port
}

// IsProduction reports whether the app runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}
