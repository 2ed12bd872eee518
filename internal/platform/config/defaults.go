package config

// Default returns the configuration used when no config file is present.
// File values override these field by field.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:          "0.0.0.0",
			Port:        8000,
			Path:        "/ws",
			IdleTimeout: 300,
		},
		Web: WebConfig{
			Enabled:   true,
			Port:      8080,
			StaticDir: "./web",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Engine: EngineConfig{
			BaseURL:   "https://api.openai.com/v1",
			ModelName: "gpt-4o-mini",
			MaxTokens: 500,
		},
		Stream: StreamConfig{
			FlushThreshold:  5,
			DefaultLanguage: "en",
			EngineLanguage:  "en",
			SupportedLanguages: []string{
				"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh",
			},
		},
	}
}
