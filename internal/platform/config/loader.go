package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "voicebridge-server-go/internal/platform/errors"
)

var configCandidates = []string{".config.yaml", "config.yaml"}

// Loader reads the yaml configuration and applies environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader with .env preloading enabled.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the loader to a specific config file (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads defaults, overlays the first config file found, then applies
// environment variable overrides for secrets.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	cfg := Default()

	path := l.path
	if path == "" {
		for _, candidate := range configCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "parse config file", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENGINE_API_KEY"); v != "" {
		cfg.Engine.APIKey = v
	}
	if v := os.Getenv("ENGINE_BASE_URL"); v != "" {
		cfg.Engine.BaseURL = v
	}
	if v := os.Getenv("ENGINE_MODEL_NAME"); v != "" {
		cfg.Engine.ModelName = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Web.Enabled && (cfg.Web.Port <= 0 || cfg.Web.Port > 65535) {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("invalid web port %d", cfg.Web.Port))
	}
	if cfg.Stream.FlushThreshold <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("flush threshold must be positive, got %d", cfg.Stream.FlushThreshold))
	}
	if cfg.Stream.DefaultLanguage == "" {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			"default language must not be empty")
	}
	if !cfg.Stream.SupportsLanguage(cfg.Stream.DefaultLanguage) {
		return platformerrors.New(platformerrors.KindConfig, "validate",
			fmt.Sprintf("default language %q is not in supported languages", cfg.Stream.DefaultLanguage))
	}
	return nil
}
