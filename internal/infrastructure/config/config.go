package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all hub configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Sync     SyncConfig
	Webhook  WebhookConfig
	Scopes   ScopesConfig
	Woo      WooConfig
	Zid      ZidConfig
	Salla    SallaConfig
	Shopify  ShopifyConfig
}

// AppConfig holds application-wide settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds the store connection settings. URL selects the
// backend: postgres://... opens PostgreSQL, sqlite://path or a bare *.db
// path opens SQLite.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis settings for the webhook idempotency fast path.
// Redis is optional; when disabled the in-memory store is used and the
// database unique constraint remains the source of truth.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds webhook server settings
type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodySize  int64
}

// SyncConfig holds push behavior shared by all connectors
type SyncConfig struct {
	MaxAttempts    int
	RequestTimeout time.Duration
	BatchDelay     time.Duration
}

// WebhookConfig holds order-event intake settings
type WebhookConfig struct {
	IdempotencyTTL time.Duration
	LagThreshold   time.Duration
}

// ScopesConfig maps each loadable scope to its catalog CSV export
type ScopesConfig struct {
	Top50CSV  string
	Top100CSV string
	Top200CSV string
}

// WooConfig holds WooCommerce REST credentials
type WooConfig struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
}

// ZidConfig holds Zid API credentials. With no access token the connector
// falls back to writing merchant-importable CSV exports under ExportDir.
type ZidConfig struct {
	AccessToken string
	APIBase     string
	ExportDir   string
}

// SallaConfig holds Salla API credentials
type SallaConfig struct {
	AccessToken string
	APIBase     string
}

// ShopifyConfig holds Shopify Admin API credentials
type ShopifyConfig struct {
	Store      string
	AdminToken string
	APIVersion string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with HUB_ prefix (e.g., HUB_DATABASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("HUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Port:         v.GetString("http.port"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
		},
		Sync: SyncConfig{
			MaxAttempts:    v.GetInt("sync.max_attempts"),
			RequestTimeout: v.GetDuration("sync.request_timeout"),
			BatchDelay:     v.GetDuration("sync.batch_delay"),
		},
		Webhook: WebhookConfig{
			IdempotencyTTL: v.GetDuration("webhook.idempotency_ttl"),
			LagThreshold:   v.GetDuration("webhook.lag_threshold"),
		},
		Scopes: ScopesConfig{
			Top50CSV:  v.GetString("scopes.top50_csv"),
			Top100CSV: v.GetString("scopes.top100_csv"),
			Top200CSV: v.GetString("scopes.top200_csv"),
		},
		Woo: WooConfig{
			StoreURL:       v.GetString("woo.store_url"),
			ConsumerKey:    v.GetString("woo.consumer_key"),
			ConsumerSecret: v.GetString("woo.consumer_secret"),
		},
		Zid: ZidConfig{
			AccessToken: v.GetString("zid.access_token"),
			APIBase:     v.GetString("zid.api_base"),
			ExportDir:   v.GetString("zid.export_dir"),
		},
		Salla: SallaConfig{
			AccessToken: v.GetString("salla.access_token"),
			APIBase:     v.GetString("salla.api_base"),
		},
		Shopify: ShopifyConfig{
			Store:      v.GetString("shopify.store"),
			AdminToken: v.GetString("shopify.admin_token"),
			APIVersion: v.GetString("shopify.api_version"),
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
		cfg.App.Name = "omnihub"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = "sqlite://omnihub.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
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
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8090"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Sync.MaxAttempts == 0 {
		cfg.Sync.MaxAttempts = 3
	}
	if cfg.Sync.RequestTimeout == 0 {
		cfg.Sync.RequestTimeout = 30 * time.Second
	}
	if cfg.Sync.BatchDelay == 0 {
		cfg.Sync.BatchDelay = 200 * time.Millisecond
	}
	if cfg.Webhook.IdempotencyTTL == 0 {
		cfg.Webhook.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Webhook.LagThreshold == 0 {
		cfg.Webhook.LagThreshold = 15 * time.Minute
	}
	if cfg.Scopes.Top50CSV == "" {
		cfg.Scopes.Top50CSV = "woocommerce-top-sell-balanced-50.csv"
	}
	if cfg.Scopes.Top100CSV == "" {
		cfg.Scopes.Top100CSV = "woocommerce-top-sell-balanced-100.csv"
	}
	if cfg.Scopes.Top200CSV == "" {
		cfg.Scopes.Top200CSV = "woocommerce-top-sell-balanced-200.csv"
	}
	if cfg.Zid.APIBase == "" {
		cfg.Zid.APIBase = "https://api.zid.sa/v1"
	}
	if cfg.Zid.ExportDir == "" {
		cfg.Zid.ExportDir = "exports"
	}
	if cfg.Salla.APIBase == "" {
		cfg.Salla.APIBase = "https://api.salla.dev/admin/v2"
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-10"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be at least 1")
	}
	if c.Webhook.IdempotencyTTL < 0 {
		return fmt.Errorf("webhook.idempotency_ttl cannot be negative")
	}

	if c.App.Env == "production" {
		if strings.HasPrefix(c.Database.URL, "sqlite://") || strings.HasSuffix(c.Database.URL, ".db") {
			return fmt.Errorf("database.url must be a postgres URL in production")
		}
		if c.Log.Format != "json" {
			return fmt.Errorf("log.format must be json in production")
		}
	}

	return nil
}
