package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	ReadTimeout   int    `mapstructure:"read_timeout"`
	WriteTimeout  int    `mapstructure:"write_timeout"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Storage backends for the two blob caches.
const (
	BackendMemory   = "memory"
	BackendValkey   = "valkey"
	BackendPostgres = "postgres"
)

type StorageConfig struct {
	PerimeterBackend string `mapstructure:"perimeter_backend"`
	LinkBackend      string `mapstructure:"link_backend"`
}

// Uses reports whether either cache is stored in backend.
func (s StorageConfig) Uses(backend string) bool {
	return s.PerimeterBackend == backend || s.LinkBackend == backend
}

type RoutingConfig struct {
	BufferKm      float64       `mapstructure:"buffer_km"`
	MaxAvoidRects int           `mapstructure:"max_avoid_rects"`
	PerimeterTTL  time.Duration `mapstructure:"perimeter_ttl"`
	LinkTTL       time.Duration `mapstructure:"link_ttl"`
	SnapDegrees   float64       `mapstructure:"snap_degrees"`
	PointBufferKm float64       `mapstructure:"point_buffer_km"`
}

type ProvidersConfig struct {
	HereAPIKey   string        `mapstructure:"here_api_key"`
	GeocodeURL   string        `mapstructure:"geocode_url"`
	RouterURL    string        `mapstructure:"router_url"`
	PerimeterURL string        `mapstructure:"perimeter_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type TemporalConfig struct {
	HostPort     string        `mapstructure:"host_port"`
	Namespace    string        `mapstructure:"namespace"`
	TaskQueue    string        `mapstructure:"task_queue"`
	WarmSchedule string        `mapstructure:"warm_schedule"`
	WarmRegions  []WarmRegion  `mapstructure:"warm_regions"`
	WarmTimeout  time.Duration `mapstructure:"warm_timeout"`
}

// WarmRegion is a named box kept warm in the perimeter cache.
type WarmRegion struct {
	Name   string  `mapstructure:"name"`
	MinLat float64 `mapstructure:"min_lat"`
	MinLon float64 `mapstructure:"min_lon"`
	MaxLat float64 `mapstructure:"max_lat"`
	MaxLon float64 `mapstructure:"max_lon"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	// .env is optional and never overrides variables already set.
	_ = godotenv.Load()

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.public_base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fireroute")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "fireroute")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("storage.perimeter_backend", BackendValkey)
	v.SetDefault("storage.link_backend", BackendPostgres)
	v.SetDefault("routing.buffer_km", 2.0)
	v.SetDefault("routing.max_avoid_rects", 10)
	v.SetDefault("routing.perimeter_ttl", 15*time.Minute)
	v.SetDefault("routing.link_ttl", 24*time.Hour)
	v.SetDefault("routing.snap_degrees", 0.05)
	v.SetDefault("routing.point_buffer_km", 5.0)
	v.SetDefault("providers.here_api_key", "")
	v.SetDefault("providers.geocode_url", "")
	v.SetDefault("providers.router_url", "")
	v.SetDefault("providers.perimeter_url", "")
	v.SetDefault("providers.timeout", 15*time.Second)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "fireroute-warmup")
	v.SetDefault("temporal.warm_schedule", "*/10 * * * *")
	v.SetDefault("temporal.warm_timeout", 2*time.Minute)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: FIREROUTE_DATABASE_HOST → database.host
	v.SetEnvPrefix("FIREROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	for name, b := range map[string]string{
		"storage.perimeter_backend": c.Storage.PerimeterBackend,
		"storage.link_backend":      c.Storage.LinkBackend,
	} {
		switch b {
		case BackendMemory, BackendValkey, BackendPostgres:
		default:
			errs = append(errs, fmt.Sprintf("%s must be memory, valkey or postgres, got %q", name, b))
		}
	}
	if c.Storage.Uses(BackendPostgres) {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.Storage.Uses(BackendValkey) && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if !(c.Routing.BufferKm >= 0 && c.Routing.BufferKm <= 100) {
		errs = append(errs, fmt.Sprintf("routing.buffer_km must be 0-100, got %g", c.Routing.BufferKm))
	}
	if c.Routing.MaxAvoidRects <= 0 {
		errs = append(errs, "routing.max_avoid_rects must be positive")
	}
	if c.Routing.PerimeterTTL <= 0 {
		errs = append(errs, "routing.perimeter_ttl must be positive")
	}
	if c.Routing.LinkTTL <= 0 {
		errs = append(errs, "routing.link_ttl must be positive")
	}
	if c.Routing.SnapDegrees < 0 {
		errs = append(errs, "routing.snap_degrees must not be negative")
	}

	for i, r := range c.Temporal.WarmRegions {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("temporal.warm_regions[%d].name is required", i))
		}
		if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
			errs = append(errs, fmt.Sprintf("temporal.warm_regions[%d] has min corner above max corner", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
