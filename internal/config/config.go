package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/andresmejia3/stable/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// AppVersion is reported by --version and GET /health.
	AppVersion = "0.1.0"
	// DefaultPath is where the CLI looks for a config file when --config is not given.
	DefaultPath = "stable.yaml"
)

// Config is the full application configuration.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Preview  PreviewConfig  `yaml:"preview"`
}

// DefaultsConfig holds the starting form values for a new card.
type DefaultsConfig struct {
	Name       string  `yaml:"name"`
	Speed      int     `yaml:"speed"`
	Stamina    int     `yaml:"stamina"`
	Jump       int     `yaml:"jump"`
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
	Color      float64 `yaml:"color"`
	Sharpness  float64 `yaml:"sharpness"`
	Blur       bool    `yaml:"blur"`
}

// OutputConfig controls where exported files land.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig configures `stable serve`.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	Timeout     string `yaml:"timeout"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// StoreConfig selects the registry backend. postgres:// DSNs use PostgreSQL;
// sqlite:// DSNs and bare paths use SQLite.
type StoreConfig struct {
	DSN string `yaml:"dsn"`
}

// LoggingConfig configures the diagnostic logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, console
	File       string `yaml:"file"`   // empty = stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// PreviewConfig sets the size of rendered preview cards.
type PreviewConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Name:       "Comet",
			Speed:      70,
			Stamina:    65,
			Jump:       60,
			Brightness: 1.0,
			Contrast:   1.0,
			Color:      1.0,
			Sharpness:  1.0,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			Timeout:     "60s",
			MaxUploadMB: 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 2,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Preview: PreviewConfig{
			Width:  480,
			Height: 600,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("STABLE_DB"); dsn != "" {
		c.Store.DSN = dsn
	} else if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		c.Store.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}

	if addr := os.Getenv("STABLE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("STABLE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("STABLE_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if mb := os.Getenv("STABLE_MAX_UPLOAD_MB"); mb != "" {
		if n, err := strconv.Atoi(mb); err == nil && n > 0 {
			c.Server.MaxUploadMB = n
		}
	}
}

// StoreDSN returns the configured DSN, falling back to a SQLite file in the user's home directory.
func (c *Config) StoreDSN() string {
	if c.Store.DSN != "" {
		return c.Store.DSN
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "sqlite://stable.db"
	}
	return "sqlite://" + filepath.Join(home, ".stable", "stable.db")
}

// GetServerTimeout returns the per-request timeout as a duration.
func (c *Config) GetServerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// MaxUploadBytes is the request body limit for image uploads.
func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

// Tuning returns the default tuning.
func (d DefaultsConfig) Tuning() types.Tuning {
	return types.Tuning{
		Brightness: d.Brightness,
		Contrast:   d.Contrast,
		Color:      d.Color,
		Sharpness:  d.Sharpness,
		Blur:       d.Blur,
	}
}

// Card returns the default card.
func (d DefaultsConfig) Card() types.StatCard {
	return types.StatCard{
		Name:    d.Name,
		Speed:   d.Speed,
		Stamina: d.Stamina,
		Jump:    d.Jump,
		Tuning:  d.Tuning(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Preview.Width < 64 || c.Preview.Height < 96 {
		return fmt.Errorf("preview size too small: %dx%d (minimum 64x96)", c.Preview.Width, c.Preview.Height)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: json, console)", c.Logging.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server address must not be empty")
	}
	return nil
}
