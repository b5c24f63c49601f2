// Package config reads the studio configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/lehigh-university-libraries/studio/internal/gemini"
)

const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Studio  StudioConfig
	Gemini  GeminiConfig
	Logging LogConfig
}

// ServerConfig holds the HTTP server settings. The rate limit applies to
// requests that call the generation service; zero disables it.
type ServerConfig struct {
	Port           string  `envconfig:"STUDIO_PORT" default:"8888"`
	StaticDir      string  `envconfig:"STUDIO_STATIC_DIR" default:"static"`
	RateLimitRPS   float64 `envconfig:"STUDIO_RATE_LIMIT_RPS" default:"2"`
	RateLimitBurst int     `envconfig:"STUDIO_RATE_LIMIT_BURST" default:"4"`
	Metrics        bool    `envconfig:"STUDIO_METRICS" default:"true"`
}

// StorageConfig selects where saved projects live. A quota of zero means
// no limit.
type StorageConfig struct {
	Backend string `envconfig:"STUDIO_STORAGE" default:"sqlite"`
	DataDir string `envconfig:"STUDIO_DATA_DIR" default:"~/.studio"`
	Quota   int64  `envconfig:"STUDIO_STORAGE_QUOTA" default:"5242880"`
}

type StudioConfig struct {
	HistoryLimit      int           `envconfig:"STUDIO_HISTORY_LIMIT" default:"0"`
	VideoPollInterval time.Duration `envconfig:"STUDIO_VIDEO_POLL_INTERVAL" default:"10s"`
}

// GeminiConfig holds the API key and model names. The key is only ever
// read from the environment.
type GeminiConfig struct {
	APIKey         string        `envconfig:"GEMINI_API_KEY"`
	FallbackAPIKey string        `envconfig:"API_KEY"`
	BaseURL        string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	Timeout        time.Duration `envconfig:"GEMINI_TIMEOUT" default:"5m"`
	TextModel      string        `envconfig:"GEMINI_TEXT_MODEL" default:"gemini-2.5-flash"`
	ThinkingModel  string        `envconfig:"GEMINI_THINKING_MODEL" default:"gemini-2.5-pro"`
	ImageModel     string        `envconfig:"GEMINI_IMAGE_MODEL" default:"gemini-2.5-flash-image"`
	ImagenModel    string        `envconfig:"GEMINI_IMAGEN_MODEL" default:"imagen-4.0-generate-001"`
	VideoModel     string        `envconfig:"GEMINI_VIDEO_MODEL" default:"veo-3.1-fast-generate-preview"`
}

type LogConfig struct {
	Level string `envconfig:"STUDIO_LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	// sections are processed one by one so the tags are the exact variable names
	sections := []any{&cfg.Server, &cfg.Storage, &cfg.Studio, &cfg.Gemini, &cfg.Logging}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend != StorageSQLite && c.Storage.Backend != StorageMemory {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit must not be negative, got %g", c.Server.RateLimitRPS)
	}
	if c.Storage.Quota < 0 {
		return fmt.Errorf("storage quota must not be negative, got %d", c.Storage.Quota)
	}
	if c.Studio.HistoryLimit < 0 {
		return fmt.Errorf("history limit must not be negative, got %d", c.Studio.HistoryLimit)
	}
	if c.Studio.VideoPollInterval <= 0 {
		return fmt.Errorf("video poll interval must be positive, got %s", c.Studio.VideoPollInterval)
	}

	dir, err := expandHome(c.Storage.DataDir)
	if err != nil {
		return err
	}
	c.Storage.DataDir = dir

	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = c.Gemini.FallbackAPIKey
	}
	return nil
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "studio.db")
}

// GeminiClientConfig converts the model settings for the gemini client.
func (c *Config) GeminiClientConfig() gemini.Config {
	g := c.Gemini
	return gemini.Config{
		APIKey:        g.APIKey,
		BaseURL:       g.BaseURL,
		Timeout:       g.Timeout,
		TextModel:     g.TextModel,
		ThinkingModel: g.ThinkingModel,
		ImageModel:    g.ImageModel,
		ImagenModel:   g.ImagenModel,
		VideoModel:    g.VideoModel,
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
