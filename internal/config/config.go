// Package config provides configuration loading for the counterfactual
// latent-space service.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/localrivet/configurator"
)

// Config represents the service configuration.
type Config struct {
	// Data contains the raw collection input paths used at build time; the
	// creators file is also read at serve time for facet resolution.
	Data struct {
		// ArtworksPath is the path to the raw artworks JSON file.
		ArtworksPath string `json:"artworks_path" env:"ARTWORKS_PATH"`

		// ArtistsPath is the path to the raw artists JSON file.
		ArtistsPath string `json:"artists_path" env:"ARTISTS_PATH" validate:"required"`
	} `json:"data"`

	// Space contains the built latent-space artifact location.
	Space struct {
		// Dir is the directory holding build artifacts.
		Dir string `json:"dir" env:"SPACE_DIR" validate:"required"`
	} `json:"space"`

	// Embedder contains embedding-function configuration.
	Embedder struct {
		// Provider is the name of the embedding provider to use ("mock",
		// "openai").
		Provider string `json:"provider" env:"EMBEDDER_PROVIDER"`

		// Model is the embedding model identifier.
		Model string `json:"model" env:"EMBEDDER_MODEL"`

		// Dimensions is the full embedding dimensionality.
		Dimensions int `json:"dimensions" env:"EMBEDDER_DIMENSIONS" validate:"min:1"`

		// BatchSize is how many descriptions are embedded per call.
		BatchSize int `json:"batch_size" env:"EMBEDDER_BATCH_SIZE"`

		// ApiKey is the API key for the embedding provider.
		ApiKey string `json:"api_key" env:"EMBEDDER_API_KEY"`
	} `json:"embedder"`

	// Projection contains dimensionality-reduction configuration.
	Projection struct {
		// Dimensions is the reduced dimensionality target.
		Dimensions int `json:"dimensions" env:"PROJECTION_DIMENSIONS" validate:"min:1"`
	} `json:"projection"`

	// Synth contains image-synthesis configuration.
	Synth struct {
		// Model is the synthesis model identifier.
		Model string `json:"model" env:"SYNTH_MODEL"`

		// ApiKey is the credential for the image-synthesis service.
		ApiKey string `json:"api_key" env:"SYNTH_API_KEY"`

		// BaseURL overrides the synthesis endpoint, mainly for tests.
		BaseURL string `json:"base_url" env:"SYNTH_BASE_URL"`
	} `json:"synth"`

	// Server contains serving-layer configuration.
	Server struct {
		// Addr is the listen address for the HTTP API.
		Addr string `json:"addr" env:"SERVER_ADDR"`
	} `json:"server"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath string       `json:"-"`
	mutex      sync.RWMutex `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".counterfactualconfig"
	DefaultSpaceDir       = "outputs/latent_space"
	DefaultArtworksPath   = "data/artworks/Artworks.json"
	DefaultArtistsPath    = "data/artworks/Artists.json"
	DefaultServerAddr     = ":5001"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Data.ArtworksPath = DefaultArtworksPath
	config.Data.ArtistsPath = DefaultArtistsPath
	config.Space.Dir = DefaultSpaceDir
	config.Embedder.Provider = "mock"
	config.Embedder.Dimensions = 384
	config.Embedder.BatchSize = 32
	config.Projection.Dimensions = 50
	config.Server.Addr = DefaultServerAddr
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path
func LoadConfigWithPath(configPath string) (*Config, error) {
	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg := NewConfig()

	// Try to find config file if path is default
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// File doesn't exist, return default config with env overlay applied
		stdLogger.Info("Config file not found, using default configuration", "path", configPath)
		cfg.configPath = configPath
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	stdLogger.Info("Loading configuration", "path", configPath)

	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider()).
		WithProvider(configurator.NewFileProvider(configPath)).
		WithProvider(configurator.NewEnvProvider("COUNTERFACTUAL")).
		WithValidator(configurator.NewDefaultValidator())

	ctx := context.Background()
	if err := config.Load(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.configPath = configPath
	return cfg, nil
}

// applyEnvOverrides picks up the credential env vars even when no config
// file exists, so `serve` works with nothing but environment setup.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COUNTERFACTUAL_SYNTH_API_KEY"); v != "" {
		cfg.Synth.ApiKey = v
	}
	if v := os.Getenv("COUNTERFACTUAL_EMBEDDER_API_KEY"); v != "" {
		cfg.Embedder.ApiKey = v
	}
	if v := os.Getenv("COUNTERFACTUAL_SPACE_DIR"); v != "" {
		cfg.Space.Dir = v
	}
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	return nil
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}
