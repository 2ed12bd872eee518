package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9000
web:
  enabled: true
  port: 9001
log:
  log_level: "debug"
engine:
  model_name: "test-model"
stream:
  flush_threshold: 5
  default_language: "en"
`

	if err := os.WriteFile(configFile, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader().WithDotEnv(false).WithPath(configFile)
	result, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := result.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected server port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Engine.ModelName != "test-model" {
		t.Errorf("expected engine model test-model, got %s", cfg.Engine.ModelName)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Stream.EngineLanguage != "en" {
		t.Errorf("expected default engine language en, got %s", cfg.Stream.EngineLanguage)
	}
}

func TestLoader_MissingPinnedFile(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for missing pinned config file")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_API_KEY", "sk-test-key")
	t.Setenv("ENGINE_BASE_URL", "http://localhost:9999/v1")

	loader := NewLoader().WithDotEnv(false)
	result, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if result.Config.Engine.APIKey != "sk-test-key" {
		t.Errorf("expected api key override, got %q", result.Config.Engine.APIKey)
	}
	if result.Config.Engine.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("expected base url override, got %q", result.Config.Engine.BaseURL)
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid web port",
			mutate:  func(c *Config) { c.Web.Port = -1 },
			wantErr: true,
		},
		{
			name:    "zero flush threshold",
			mutate:  func(c *Config) { c.Stream.FlushThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "empty default language",
			mutate:  func(c *Config) { c.Stream.DefaultLanguage = "" },
			wantErr: true,
		},
		{
			name:    "default language not supported",
			mutate:  func(c *Config) { c.Stream.DefaultLanguage = "xx" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStreamConfig_SupportsLanguage(t *testing.T) {
	cfg := Default()
	if !cfg.Stream.SupportsLanguage("es") {
		t.Error("expected es to be supported by default")
	}
	if cfg.Stream.SupportsLanguage("tlh") {
		t.Error("expected tlh to be unsupported")
	}
}
