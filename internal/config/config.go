package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects the build flavour and with it the inference endpoint.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Fixed inference endpoints, one per build mode.
var endpoints = map[Mode]string{
	ModeDevelopment: "http://localhost:5000/api/detect",
	ModeProduction:  "https://skin-cancer-detection-web-8f38fc400b28.herokuapp.com/api/detect",
}

// Config is the process configuration. Load layers defaults, an optional
// YAML file and environment variables, in that order.
type Config struct {
	Port          string        `yaml:"port"`
	Mode          Mode          `yaml:"mode"`
	AssetDir      string        `yaml:"asset_dir"`
	EntryDocument string        `yaml:"entry_document"`
	MaxUploadMB   int64         `yaml:"max_upload_mb"`
	PreviewSize   uint          `yaml:"preview_size"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	LogLevel      string        `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:          "3000",
		Mode:          ModeDevelopment,
		EntryDocument: "index.html",
		MaxUploadMB:   20,
		PreviewSize:   512,
		SessionTTL:    30 * time.Minute,
		LogLevel:      "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file at path
// and finally the environment. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Mode = Mode(strings.ToLower(getEnv("APP_MODE", string(cfg.Mode))))
	cfg.AssetDir = getEnv("ASSET_DIR", cfg.AssetDir)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if _, ok := endpoints[c.Mode]; !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if c.EntryDocument == "" {
		return errors.New("entry document must be set")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max upload must be positive, got %d", c.MaxUploadMB)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// InferenceURL returns the detect endpoint for the configured mode.
func (c *Config) InferenceURL() string {
	return endpoints[c.Mode]
}

// Addr is the listen address for the configured port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// MaxUploadBytes is the request body cap for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
