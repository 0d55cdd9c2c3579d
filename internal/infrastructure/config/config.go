package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Sync       SyncConfig
	RateLimit  RateLimitConfig
	Retry      RetryConfig
	Storefront StorefrontConfig
	Inventory  InventoryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
	TrustedProxies  []string
}

// SyncConfig holds synchronization run configuration
type SyncConfig struct {
	Workers          int
	MaxDetails       int
	MaxRunHistory    int
	VariantChunkSize int
	QuantityEpsilon  float64
	MediaSettleDelay time.Duration
	LocationID       string
}

// RateLimitConfig holds adaptive throttle configuration
type RateLimitConfig struct {
	RatePerSecond    float64
	Burst            int
	MinRatePerSecond float64
	ShrinkFactor     float64
	RecoverFactor    float64
	SuccessThreshold int
	CooldownBase     time.Duration
	CooldownMax      time.Duration
}

// RetryConfig holds retry policy configuration
type RetryConfig struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// StorefrontConfig holds storefront platform API settings
type StorefrontConfig struct {
	BaseURL        string
	AccessToken    string
	LocationID     string
	PageSize       int
	MaxBatchSize   int
	TimeoutSeconds int
}

// InventoryConfig holds inventory source-of-record API settings
type InventoryConfig struct {
	BaseURL        string
	APIKey         string
	ImageFeedURL   string
	PageSize       int
	TimeoutSeconds int
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOPBRIDGE_ prefix (e.g., SHOPBRIDGE_STOREFRONT_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("SHOPBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			Workers:          v.GetInt("sync.workers"),
			MaxDetails:       v.GetInt("sync.max_details"),
			MaxRunHistory:    v.GetInt("sync.max_run_history"),
			VariantChunkSize: v.GetInt("sync.variant_chunk_size"),
			QuantityEpsilon:  v.GetFloat64("sync.quantity_epsilon"),
			MediaSettleDelay: v.GetDuration("sync.media_settle_delay"),
			LocationID:       v.GetString("sync.location_id"),
		},
		RateLimit: RateLimitConfig{
			RatePerSecond:    v.GetFloat64("rate_limit.rate_per_second"),
			Burst:            v.GetInt("rate_limit.burst"),
			MinRatePerSecond: v.GetFloat64("rate_limit.min_rate_per_second"),
			ShrinkFactor:     v.GetFloat64("rate_limit.shrink_factor"),
			RecoverFactor:    v.GetFloat64("rate_limit.recover_factor"),
			SuccessThreshold: v.GetInt("rate_limit.success_threshold"),
			CooldownBase:     v.GetDuration("rate_limit.cooldown_base"),
			CooldownMax:      v.GetDuration("rate_limit.cooldown_max"),
		},
		Retry: RetryConfig{
			MaxAttempts:         v.GetInt("retry.max_attempts"),
			InitialInterval:     v.GetDuration("retry.initial_interval"),
			MaxInterval:         v.GetDuration("retry.max_interval"),
			Multiplier:          v.GetFloat64("retry.multiplier"),
			RandomizationFactor: v.GetFloat64("retry.randomization_factor"),
		},
		Storefront: StorefrontConfig{
			BaseURL:        v.GetString("storefront.base_url"),
			AccessToken:    v.GetString("storefront.access_token"),
			LocationID:     v.GetString("storefront.location_id"),
			PageSize:       v.GetInt("storefront.page_size"),
			MaxBatchSize:   v.GetInt("storefront.max_batch_size"),
			TimeoutSeconds: v.GetInt("storefront.timeout_seconds"),
		},
		Inventory: InventoryConfig{
			BaseURL:        v.GetString("inventory.base_url"),
			APIKey:         v.GetString("inventory.api_key"),
			ImageFeedURL:   v.GetString("inventory.image_feed_url"),
			PageSize:       v.GetInt("inventory.page_size"),
			TimeoutSeconds: v.GetInt("inventory.timeout_seconds"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopbridge-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
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
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 4
	}
	if cfg.Sync.MaxDetails == 0 {
		cfg.Sync.MaxDetails = 1000
	}
	if cfg.Sync.MaxRunHistory == 0 {
		cfg.Sync.MaxRunHistory = 20
	}
	if cfg.Sync.VariantChunkSize == 0 {
		cfg.Sync.VariantChunkSize = 50
	}
	if cfg.Sync.QuantityEpsilon == 0 {
		cfg.Sync.QuantityEpsilon = 0.001
	}
	if cfg.Sync.MediaSettleDelay == 0 {
		cfg.Sync.MediaSettleDelay = 500 * time.Millisecond
	}
	if cfg.Sync.LocationID == "" {
		cfg.Sync.LocationID = "primary"
	}
	if cfg.RateLimit.RatePerSecond == 0 {
		cfg.RateLimit.RatePerSecond = 4
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 8
	}
	if cfg.RateLimit.MinRatePerSecond == 0 {
		cfg.RateLimit.MinRatePerSecond = 0.5
	}
	if cfg.RateLimit.ShrinkFactor == 0 {
		cfg.RateLimit.ShrinkFactor = 0.5
	}
	if cfg.RateLimit.RecoverFactor == 0 {
		cfg.RateLimit.RecoverFactor = 1.2
	}
	if cfg.RateLimit.SuccessThreshold == 0 {
		cfg.RateLimit.SuccessThreshold = 10
	}
	if cfg.RateLimit.CooldownBase == 0 {
		cfg.RateLimit.CooldownBase = time.Second
	}
	if cfg.RateLimit.CooldownMax == 0 {
		cfg.RateLimit.CooldownMax = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 6
	}
	if cfg.Retry.InitialInterval == 0 {
		cfg.Retry.InitialInterval = 500 * time.Millisecond
	}
	if cfg.Retry.MaxInterval == 0 {
		cfg.Retry.MaxInterval = 15 * time.Second
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry.Multiplier = 2.0
	}
	if cfg.Retry.RandomizationFactor == 0 {
		cfg.Retry.RandomizationFactor = 0.3
	}
	if cfg.Storefront.LocationID == "" {
		cfg.Storefront.LocationID = cfg.Sync.LocationID
	}
	if cfg.Storefront.PageSize == 0 {
		cfg.Storefront.PageSize = 100
	}
	if cfg.Storefront.MaxBatchSize == 0 {
		cfg.Storefront.MaxBatchSize = 50
	}
	if cfg.Storefront.TimeoutSeconds == 0 {
		cfg.Storefront.TimeoutSeconds = 30
	}
	if cfg.Inventory.PageSize == 0 {
		cfg.Inventory.PageSize = 100
	}
	if cfg.Inventory.TimeoutSeconds == 0 {
		cfg.Inventory.TimeoutSeconds = 30
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Sync.Workers < 1 || c.Sync.Workers > 64 {
		return fmt.Errorf("sync.workers must be between 1 and 64, got %d", c.Sync.Workers)
	}
	if c.Sync.QuantityEpsilon < 0 {
		return fmt.Errorf("sync.quantity_epsilon cannot be negative")
	}
	if c.RateLimit.MinRatePerSecond > c.RateLimit.RatePerSecond {
		return fmt.Errorf("rate_limit.min_rate_per_second (%f) cannot exceed rate_limit.rate_per_second (%f)",
			c.RateLimit.MinRatePerSecond, c.RateLimit.RatePerSecond)
	}
	if c.RateLimit.ShrinkFactor <= 0 || c.RateLimit.ShrinkFactor >= 1 {
		return fmt.Errorf("rate_limit.shrink_factor must be in (0, 1), got %f", c.RateLimit.ShrinkFactor)
	}
	if c.RateLimit.RecoverFactor <= 1 {
		return fmt.Errorf("rate_limit.recover_factor must be greater than 1, got %f", c.RateLimit.RecoverFactor)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Storefront.BaseURL == "" {
			return fmt.Errorf("storefront.base_url is required in production")
		}
		if c.Storefront.AccessToken == "" {
			return fmt.Errorf("storefront.access_token is required in production")
		}
		if c.Inventory.BaseURL == "" {
			return fmt.Errorf("inventory.base_url is required in production")
		}
		if c.Inventory.APIKey == "" {
			return fmt.Errorf("inventory.api_key is required in production")
		}
	}

	return nil
}
