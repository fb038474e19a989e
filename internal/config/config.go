package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Publisher PublisherConfig
	Analytics AnalyticsConfig
	Storage   StorageConfig
	Sync      SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string   `envconfig:"APP_NAME" default:"reelhub-api"`
	Environment string   `envconfig:"APP_ENV" default:"development"`
	Version     string   `envconfig:"APP_VERSION" default:"1.0.0"`
	APIKeys     []string `envconfig:"API_KEYS" default:""` // Dashboard keys; empty disables auth
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, mysql or postgres
	Path string `envconfig:"STORE_PATH" default:"./data/reelhub.db"`
}

// DatabaseConfig holds MySQL or PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"3306"`
	Name     string `envconfig:"DB_NAME" default:"reelhub"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // PostgreSQL only
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type         string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	SignedURLTTL time.Duration `envconfig:"SIGNED_URL_TTL" default:"144h"`
	SignTimeout  time.Duration `envconfig:"SIGN_TIMEOUT" default:"10s"`       // one signer call
	BatchTimeout time.Duration `envconfig:"SIGN_BATCH_TIMEOUT" default:"30s"` // whole batch signing

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// PublisherConfig holds the publishing provider settings. APIKeys is the
// ordered credential pool; its order defines the credential indexes.
type PublisherConfig struct {
	APIKeys []string      `envconfig:"PUBLISHER_API_KEYS" default:""`
	BaseURL string        `envconfig:"PUBLISHER_BASE_URL" default:"https://api.upload-post.com"`
	Timeout time.Duration `envconfig:"PUBLISHER_TIMEOUT" default:"60s"`
}

// AnalyticsConfig holds the analytics provider settings.
type AnalyticsConfig struct {
	BaseURL string        `envconfig:"ANALYTICS_BASE_URL" default:"https://api.upload-post.com"`
	Timeout time.Duration `envconfig:"ANALYTICS_TIMEOUT" default:"30s"`
}

// StorageConfig holds object storage settings used for URL signing.
type StorageConfig struct {
	Bucket        string        `envconfig:"STORAGE_BUCKET" default:""`
	Region        string        `envconfig:"STORAGE_REGION" default:"auto"`
	Endpoint      string        `envconfig:"STORAGE_ENDPOINT" default:""`
	AccessKey     string        `envconfig:"STORAGE_ACCESS_KEY" default:""`
	SecretKey     string        `envconfig:"STORAGE_SECRET_KEY" default:""`
	PublicBaseURL string        `envconfig:"STORAGE_PUBLIC_BASE_URL" default:""`
	SignExpiry    time.Duration `envconfig:"STORAGE_SIGN_EXPIRY" default:"168h"`
}

// SyncConfig holds analytics sync settings.
type SyncConfig struct {
	Freshness   time.Duration `envconfig:"SYNC_FRESHNESS" default:"24h"`
	Interval    time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	Timeout     time.Duration `envconfig:"SYNC_TIMEOUT" default:"2m"`
	CallTimeout time.Duration `envconfig:"SYNC_CALL_TIMEOUT" default:"30s"`
	Concurrency int           `envconfig:"SYNC_CONCURRENCY" default:"10"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name. clientFoundRows makes UPDATE report
// matched rather than changed rows.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks settings that envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case "sqlite", "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("STORE_TYPE %q: want sqlite, mysql or postgres", c.Store.Type))
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("CACHE_TYPE %q: want memory or redis", c.Cache.Type))
	}
	if c.Cache.SignedURLTTL <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_TTL must be positive"))
	}
	if c.Cache.SignedURLTTL >= c.Storage.SignExpiry {
		errs = append(errs, fmt.Errorf("SIGNED_URL_TTL (%s) must be shorter than STORAGE_SIGN_EXPIRY (%s)",
			c.Cache.SignedURLTTL, c.Storage.SignExpiry))
	}
	if c.Cache.SignTimeout <= 0 || c.Cache.BatchTimeout <= 0 {
		errs = append(errs, errors.New("SIGN_TIMEOUT and SIGN_BATCH_TIMEOUT must be positive"))
	}
	if c.Sync.Concurrency <= 0 {
		errs = append(errs, errors.New("SYNC_CONCURRENCY must be positive"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.APIKeys = compact(cfg.App.APIKeys)
	cfg.Publisher.APIKeys = compact(cfg.Publisher.APIKeys)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
