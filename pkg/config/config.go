package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/platinummonkey/taskboard/pkg/auth"
	"github.com/platinummonkey/taskboard/pkg/middleware"
	"github.com/platinummonkey/taskboard/pkg/observability"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

// EnvPrefix is prepended to every environment variable the loader reads
const EnvPrefix = "TASKBOARD"

// ConfigFileEnv names an optional YAML file read before the environment
const ConfigFileEnv = "TASKBOARD_CONFIG"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `mapstructure:"health_port"`
}

// StorageConfig selects and tunes the storage backend
type StorageConfig struct {
	Type                string        `mapstructure:"type"`
	PostgresURL         string        `mapstructure:"postgres_url"`
	PostgresReplicaURLs string        `mapstructure:"postgres_replica_urls"`
	PostgresMaxConns    int           `mapstructure:"postgres_max_conns"`
	PostgresMinConns    int           `mapstructure:"postgres_min_conns"`
	PostgresTimeout     time.Duration `mapstructure:"postgres_timeout"`
	AutoMigrate         bool          `mapstructure:"auto_migrate"`
	RedisURL            string        `mapstructure:"redis_url"`
	RedisPassword       string        `mapstructure:"redis_password"`
	RedisDB             int           `mapstructure:"redis_db"`
	RedisPoolSize       int           `mapstructure:"redis_pool_size"`
	StatsSchedule       string        `mapstructure:"stats_schedule"`
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig holds per-principal request limits
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
	Burst             int           `mapstructure:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	MetricsEnabled bool `mapstructure:"metrics_enabled"`

	OTelEnabled        bool          `mapstructure:"otel_enabled"`
	OTelEndpoint       string        `mapstructure:"otel_endpoint"`
	OTelServiceName    string        `mapstructure:"otel_service_name"`
	OTelServiceVersion string        `mapstructure:"otel_service_version"`
	OTelInsecure       bool          `mapstructure:"otel_insecure"`
	OTelEnvironment    string        `mapstructure:"otel_environment"`
	OTelSampleRatio    float64       `mapstructure:"otel_sample_ratio"`
	OTelMetricInterval time.Duration `mapstructure:"otel_metric_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.health_port", "9090")

	defaults := storage.DefaultConfig()
	v.SetDefault("storage.type", defaults.Type)
	v.SetDefault("storage.postgres_url", "")
	v.SetDefault("storage.postgres_replica_urls", "")
	v.SetDefault("storage.postgres_max_conns", defaults.PostgresMaxConns)
	v.SetDefault("storage.postgres_min_conns", defaults.PostgresMinConns)
	v.SetDefault("storage.postgres_timeout", defaults.PostgresTimeout)
	v.SetDefault("storage.auto_migrate", defaults.AutoMigrate)
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", defaults.RedisDB)
	v.SetDefault("storage.redis_pool_size", defaults.RedisPoolSize)
	v.SetDefault("storage.stats_schedule", "@every 30s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "taskboard")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	limits := middleware.DefaultRateLimitConfig()
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_window", limits.RequestsPerWindow)
	v.SetDefault("ratelimit.window", limits.WindowDuration)
	v.SetDefault("ratelimit.burst", limits.BurstSize)

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.otel_enabled", false)
	v.SetDefault("observability.otel_endpoint", "localhost:4317")
	v.SetDefault("observability.otel_service_name", "taskboard")
	v.SetDefault("observability.otel_service_version", "1.0.0")
	v.SetDefault("observability.otel_insecure", true)
	v.SetDefault("observability.otel_environment", "development")
	v.SetDefault("observability.otel_sample_ratio", 1.0)
	v.SetDefault("observability.otel_metric_interval", 10*time.Second)
}

// LoadConfig loads configuration from defaults, the optional file named by
// TASKBOARD_CONFIG, then TASKBOARD_* environment variables, and validates it
func LoadConfig() (*Config, error) {
	return Load(viper.New())
}

// Load reads configuration through v. Keys map onto environment variables by
// upper-casing and replacing dots, so server.port is TASKBOARD_SERVER_PORT.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return errors.New("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("rate limit requires a positive request count and window")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return errors.New("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// StorageSettings converts the storage section into the storage layer's config
func (c *Config) StorageSettings() storage.Config {
	cfg := storage.DefaultConfig()
	cfg.Type = c.Storage.Type
	cfg.PostgresURL = c.Storage.PostgresURL
	cfg.PostgresReplicaURLs = splitList(c.Storage.PostgresReplicaURLs)
	if c.Storage.PostgresMaxConns > 0 {
		cfg.PostgresMaxConns = c.Storage.PostgresMaxConns
	}
	if c.Storage.PostgresMinConns > 0 {
		cfg.PostgresMinConns = c.Storage.PostgresMinConns
	}
	if c.Storage.PostgresTimeout > 0 {
		cfg.PostgresTimeout = c.Storage.PostgresTimeout
	}
	cfg.AutoMigrate = c.Storage.AutoMigrate
	cfg.RedisURL = c.Storage.RedisURL
	cfg.RedisPassword = c.Storage.RedisPassword
	cfg.RedisDB = c.Storage.RedisDB
	if c.Storage.RedisPoolSize > 0 {
		cfg.RedisPoolSize = c.Storage.RedisPoolSize
	}
	return cfg
}

// Limits converts the rate limit section into middleware settings
func (c *Config) Limits() *middleware.RateLimitConfig {
	return &middleware.RateLimitConfig{
		RequestsPerWindow: c.RateLimit.RequestsPerWindow,
		WindowDuration:    c.RateLimit.Window,
		BurstSize:         c.RateLimit.Burst,
	}
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() observability.LogLevel {
	return observability.ParseLevel(c.Observability.LogLevel)
}

// OTel returns the tracing and metrics exporter settings
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Environment:    c.Observability.OTelEnvironment,
		Insecure:       c.Observability.OTelInsecure,
		SampleRatio:    c.Observability.OTelSampleRatio,
		MetricInterval: c.Observability.OTelMetricInterval,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
