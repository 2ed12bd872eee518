package config

// Config is the root configuration for the voicebridge server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Web    WebConfig    `yaml:"web"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Stream StreamConfig `yaml:"stream"`
}

// ServerConfig describes the websocket transport endpoint.
type ServerConfig struct {
	IP          string `yaml:"ip"`
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"`
	// IdleTimeout is the number of seconds a connection may stay silent
	// before the server closes it. Zero disables the reaper.
	IdleTimeout int `yaml:"idle_timeout"`
}

// WebConfig describes the HTTP API and static demo page surface.
type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// EngineConfig configures the speech-understanding engine gateway.
type EngineConfig struct {
	BaseURL   string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	ModelName string `yaml:"model_name"`
	MaxTokens int    `yaml:"max_tokens"`

	// DevFallback substitutes a labeled placeholder transcript when every
	// transcription path fails. Never enable in production.
	DevFallback bool `yaml:"dev_fallback"`
}

// StreamConfig controls per-session buffering behaviour.
type StreamConfig struct {
	FlushThreshold     int      `yaml:"flush_threshold"`
	DefaultLanguage    string   `yaml:"default_language"`
	EngineLanguage     string   `yaml:"engine_language"`
	SupportedLanguages []string `yaml:"supported_languages"`
}

// SupportsLanguage reports whether the given code is accepted by the
// request validator and the setLanguage command.
func (s StreamConfig) SupportsLanguage(code string) bool {
	for _, lang := range s.SupportedLanguages {
		if lang == code {
			return true
		}
	}
	return false
}
