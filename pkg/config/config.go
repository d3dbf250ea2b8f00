package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applogger "CommuteTrends/pkg/logger"
	"CommuteTrends/pkg/validation"
)

const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

type Config struct {
	Environment  string `yaml:"environment" default:"development" validate:"oneof=development staging production test"`
	ConfigSource string `yaml:"config_source" default:"file" validate:"oneof=file redis"`

	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Profiles ProfilesConfig `yaml:"profiles"`

	// Headers is the response header policy used by the file provider.
	// Its Access-Control-Allow-Origin entry is a comma separated origin allow-list.
	Headers map[string]string `yaml:"headers"`
	// AllowAnyOrigin answers disallowed origins with "*" instead of rejecting them.
	AllowAnyOrigin bool                   `yaml:"allow_any_origin"`
	Routes         map[string]RouteConfig `yaml:"routes"`

	// ErrorStatus overrides the HTTP status per error kind (e.g. StoreUnavailable: 503).
	ErrorStatus        map[string]int `yaml:"error_status"`
	DefaultErrorStatus int            `yaml:"default_error_status" default:"403" validate:"gte=400,lte=599"`
}

type ServerConfig struct {
	Host            string          `yaml:"host" default:"0.0.0.0"`
	Port            int             `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration   `yaml:"slow_threshold" default:"1s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LoggingConfig struct {
	applogger.Config `yaml:",inline"`
	Collector        CollectorConfig `yaml:"collector"`
}

// CollectorConfig controls shipping of aggregated error logs to Kafka.
type CollectorConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers" validate:"required_if=Enabled true"`
	Topic          string        `yaml:"topic" default:"commute.logs"`
	Source         string        `yaml:"source" default:"commute-trends"`
	Interval       time.Duration `yaml:"interval" default:"30s"`
	CountThreshold int           `yaml:"count_threshold" default:"100"`
	Compression    string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	RequiredAcks   int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
	MaxAttempts    int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
	WriteTimeout   time.Duration `yaml:"write_timeout" default:"10s"`
	BatchTimeout   time.Duration `yaml:"batch_timeout" default:"1s"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr" default:"localhost:6379" validate:"hostname_port"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size" default:"4" validate:"gte=1"`
	Prefix      string        `yaml:"prefix" default:"/commute"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" default:"clickhouse" validate:"oneof=clickhouse postgres mysql sqlite"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" default:"commute"`
	Table    string `yaml:"table" default:"traffic"`
	Path     string `yaml:"path"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
	UseHTTP  bool   `yaml:"use_http"`

	MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	QueryTimeout     time.Duration `yaml:"query_timeout" default:"10s" validate:"gt=0"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`

	// Columns is the allow-list of selectable columns.
	Columns         []string          `yaml:"columns" default:"[\"timestamp\",\"duration_in_traffic\",\"distance\",\"count\",\"year\",\"month\",\"day\",\"harmonic_mean\"]" validate:"min=1"`
	FieldPrefix     string            `yaml:"field_prefix"`
	FieldAliases    map[string]string `yaml:"field_aliases" default:"{\"duration\":\"duration_in_traffic\",\"mean\":\"harmonic_mean\",\"time\":\"timestamp\"}"`
	DurationColumns []string          `yaml:"duration_columns" default:"[\"duration_in_traffic\",\"harmonic_mean\"]"`
	TimestampColumn string            `yaml:"timestamp_column" default:"timestamp"`
}

type RouteConfig struct {
	Origin      string   `yaml:"origin"`
	Destination string   `yaml:"destination"`
	Fields      []string `yaml:"fields"`
}

type ProfileConfig struct {
	WindowDays        int      `yaml:"window_days" validate:"gte=0"`
	Unbounded         bool     `yaml:"unbounded"`
	TimestampMode     string   `yaml:"timestamp_mode" validate:"oneof=epoch_millis formatted_date formatted_datetime"`
	Rounding          string   `yaml:"rounding" validate:"oneof=floor round"`
	StandardFields    []string `yaml:"standard_fields" validate:"min=1"`
	DeriveNameFromRow bool     `yaml:"derive_name_from_row"`
	IncludeStats      bool     `yaml:"include_stats"`
}

type ProfilesConfig struct {
	Commute ProfileConfig `yaml:"commute"`
	Stats   ProfileConfig `yaml:"stats"`
}

// SetDefaults is called by creasty/defaults. Unset profile fields take the
// behaviour of the matching legacy endpoint.
func (p *ProfilesConfig) SetDefaults() {
	fillProfile(&p.Commute, ProfileConfig{
		WindowDays:     365,
		TimestampMode:  "epoch_millis",
		Rounding:       "floor",
		StandardFields: []string{"timestamp", "duration_in_traffic"},
	})
	fillProfile(&p.Stats, ProfileConfig{
		Unbounded:      true,
		TimestampMode:  "formatted_date",
		Rounding:       "round",
		StandardFields: []string{"year", "month", "day", "harmonic_mean"},
		IncludeStats:   true,
	})
}

func fillProfile(p *ProfileConfig, def ProfileConfig) {
	// flags can only be defaulted when nothing at all was configured
	if p.TimestampMode == "" && p.Rounding == "" && len(p.StandardFields) == 0 &&
		p.WindowDays == 0 && !p.Unbounded && !p.DeriveNameFromRow && !p.IncludeStats {
		p.Unbounded = def.Unbounded
		p.IncludeStats = def.IncludeStats
		p.DeriveNameFromRow = def.DeriveNameFromRow
	}
	if p.TimestampMode == "" {
		p.TimestampMode = def.TimestampMode
	}
	if p.Rounding == "" {
		p.Rounding = def.Rounding
	}
	if len(p.StandardFields) == 0 {
		p.StandardFields = append([]string(nil), def.StandardFields...)
	}
	if p.WindowDays == 0 && !p.Unbounded {
		p.WindowDays = def.WindowDays
		if p.WindowDays == 0 {
			p.WindowDays = 365
		}
	}
}

// Profile returns the named profile.
func (c *Config) Profile(name string) (ProfileConfig, error) {
	switch name {
	case "", "commute":
		return c.Profiles.Commute, nil
	case "stats":
		return c.Profiles.Stats, nil
	default:
		return ProfileConfig{}, fmt.Errorf("unknown profile %q", name)
	}
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadWithEnv loads .env files (if present), then the YAML file, then applies
// environment overrides.
func LoadWithEnv(path string, envFiles ...string) (*Config, error) {
	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadDotEnv loads the given .env files, or ".env" when none are given.
// Missing files are ignored; variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) finalize() error {
	if err := validation.Defaults(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Struct(context.Background(), c); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.ConfigSource == SourceFile && c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		if c.ConfigSource == SourceFile && c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
	}
	if c.ConfigSource == SourceFile {
		if _, ok := c.Headers["Access-Control-Allow-Origin"]; !ok && !c.AllowAnyOrigin {
			return fmt.Errorf("headers.Access-Control-Allow-Origin is required")
		}
	}
	for name, code := range c.ErrorStatus {
		if code < 400 || code > 599 {
			return fmt.Errorf("error_status.%s must be a 4xx or 5xx code, got %d", name, code)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "COMMUTE_ENV")
	setString(&c.ConfigSource, "COMMUTE_CONFIG_SOURCE")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.Prefix, "COMMUTE_PARAM_PREFIX")
	setString(&c.Database.Driver, "COMMUTE_DB_DRIVER")
	setString(&c.Database.Host, "COMMUTE_DB_HOST")
	setString(&c.Database.User, "COMMUTE_DB_USER")
	setString(&c.Database.Password, "COMMUTE_DB_PASS")
	setString(&c.Database.Name, "COMMUTE_DB_NAME")
	setString(&c.Database.Table, "COMMUTE_DB_TABLE")
	setString(&c.Database.Path, "COMMUTE_DB_PATH")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Logging.Collector.Brokers = strings.Split(v, ",")
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Server.Port, "PORT"},
		{&c.Redis.DB, "REDIS_DB"},
		{&c.Database.Port, "COMMUTE_DB_PORT"},
		{&c.Profiles.Commute.WindowDays, "COMMUTE_WINDOW_DAYS"},
	}
	for _, it := range ints {
		if err := setInt(it.dst, it.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("COMMUTE_ALLOW_ANY_ORIGIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COMMUTE_ALLOW_ANY_ORIGIN: %w", err)
		}
		c.AllowAnyOrigin = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
