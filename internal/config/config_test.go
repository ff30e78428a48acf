package config

import (
	"path/filepath"
	"testing"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Space.Dir != DefaultSpaceDir {
		t.Errorf("Space.Dir = %q, want %q", cfg.Space.Dir, DefaultSpaceDir)
	}
	if cfg.Embedder.Provider != "mock" {
		t.Errorf("Embedder.Provider = %q, want mock", cfg.Embedder.Provider)
	}
	if cfg.Embedder.Dimensions != 384 {
		t.Errorf("Embedder.Dimensions = %d, want 384", cfg.Embedder.Dimensions)
	}
	if cfg.Projection.Dimensions != 50 {
		t.Errorf("Projection.Dimensions = %d, want 50", cfg.Projection.Dimensions)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultServerAddr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if cfg.Space.Dir != DefaultSpaceDir {
		t.Errorf("Space.Dir = %q, want default", cfg.Space.Dir)
	}
}

func TestLoadMissingFileEnvOverrides(t *testing.T) {
	t.Setenv("COUNTERFACTUAL_SYNTH_API_KEY", "r8_test")
	t.Setenv("COUNTERFACTUAL_SPACE_DIR", "/var/spaces/test")

	cfg, err := LoadConfigWithPath(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if cfg.Synth.ApiKey != "r8_test" {
		t.Errorf("Synth.ApiKey = %q, want env value", cfg.Synth.ApiKey)
	}
	if cfg.Space.Dir != "/var/spaces/test" {
		t.Errorf("Space.Dir = %q, want env value", cfg.Space.Dir)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := NewConfig()
	cfg.Space.Dir = "outputs/custom"
	cfg.Embedder.Provider = "openai"
	cfg.Server.Addr = ":9999"
	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadConfigWithPath(path)
	if err != nil {
		t.Fatalf("LoadConfigWithPath() error = %v", err)
	}
	if loaded.Space.Dir != "outputs/custom" {
		t.Errorf("Space.Dir = %q, want outputs/custom", loaded.Space.Dir)
	}
	if loaded.Embedder.Provider != "openai" {
		t.Errorf("Embedder.Provider = %q, want openai", loaded.Embedder.Provider)
	}
	if loaded.Server.Addr != ":9999" {
		t.Errorf("Server.Addr = %q, want :9999", loaded.Server.Addr)
	}
	if loaded.GetConfigPath() != path {
		t.Errorf("GetConfigPath() = %q, want %q", loaded.GetConfigPath(), path)
	}
}
