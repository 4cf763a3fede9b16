package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/bgplan/internal/shell/snapshot"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// SharedSecret, when set, must arrive in X-Gateway-Secret on /api/v1.
	SharedSecret string `mapstructure:"shared_secret"`
	RequireAuth  bool   `mapstructure:"require_auth"`
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds plan history configuration.
type DatabaseConfig struct {
	// Enabled turns plan recording on; when off nothing is written.
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SnapshotConfig holds the Terraform state snapshot location.
type SnapshotConfig struct {
	// Backend is "s3", "minio" or "file".
	Backend string `mapstructure:"backend"`

	Bucket string `mapstructure:"bucket"`

	// KeyTemplate is the object key; {service} is replaced by the service name.
	KeyTemplate string `mapstructure:"key_template"`

	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	PathStyle       bool   `mapstructure:"path_style"`

	// Dir is the root of the file backend.
	Dir string `mapstructure:"dir"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// SourceConfig converts to the snapshot package's configuration.
func (c SnapshotConfig) SourceConfig() snapshot.Config {
	return snapshot.Config{
		Backend:         c.Backend,
		Bucket:          c.Bucket,
		KeyTemplate:     c.KeyTemplate,
		Region:          c.Region,
		Profile:         c.Profile,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Endpoint:        c.Endpoint,
		UseSSL:          c.UseSSL,
		PathStyle:       c.PathStyle,
		Dir:             c.Dir,
		Timeout:         c.Timeout,
	}
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.shared_secret", "")
	v.SetDefault("server.require_auth", false)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("snapshot.backend", snapshot.BackendS3)
	v.SetDefault("snapshot.bucket", "")
	v.SetDefault("snapshot.key_template", "{service}/terraform.tfstate")
	v.SetDefault("snapshot.region", "")
	v.SetDefault("snapshot.profile", "")
	v.SetDefault("snapshot.endpoint", "")
	v.SetDefault("snapshot.access_key_id", "")
	v.SetDefault("snapshot.secret_access_key", "")
	v.SetDefault("snapshot.use_ssl", true)
	v.SetDefault("snapshot.path_style", false)
	v.SetDefault("snapshot.dir", ".")
	v.SetDefault("snapshot.timeout", "10s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("BGPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The history lives in the data dir unless a DSN is given
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(v.GetString("data_dir"), "bgplan.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Snapshot.Backend {
	case snapshot.BackendS3, snapshot.BackendFile:
	case snapshot.BackendMinIO:
		if c.Snapshot.Endpoint == "" {
			return fmt.Errorf("snapshot.endpoint is required for the %s backend", snapshot.BackendMinIO)
		}
	default:
		return fmt.Errorf("snapshot.backend must be one of s3, minio, file (got %q)", c.Snapshot.Backend)
	}
	if !strings.Contains(c.Snapshot.KeyTemplate, snapshot.ServicePlaceholder) {
		return fmt.Errorf("snapshot.key_template must contain %s", snapshot.ServicePlaceholder)
	}
	if c.Snapshot.Timeout < 0 {
		return fmt.Errorf("snapshot.timeout must not be negative")
	}
	return nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
