package config

import "time"

const (
	DefaultBaseURL        = "http://127.0.0.1:3141"
	DefaultRequestTimeout = 120 * time.Second
	DefaultStartupTimeout = 10 * time.Second

	DefaultAppName        = "vscode-lm-proxy"
	DefaultUserID         = "proxy-test-user"
	DefaultSessionAppName = "test-app"

	DefaultAssistantID = "asst_default"

	DefaultModel  = "gpt-4"
	DefaultAPIKey = "dummy-key"

	DefaultMaxWorkers = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in every zero-valued field. It is idempotent.
func ApplyDefaults(cfg *Config) {
	if cfg.Proxy.BaseURL == "" {
		cfg.Proxy.BaseURL = DefaultBaseURL
	}
	if cfg.Proxy.RequestTimeout == 0 {
		cfg.Proxy.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Proxy.StartupTimeout == 0 {
		cfg.Proxy.StartupTimeout = DefaultStartupTimeout
	}

	if cfg.Agent.AppName == "" {
		cfg.Agent.AppName = DefaultAppName
	}
	if cfg.Agent.UserID == "" {
		cfg.Agent.UserID = DefaultUserID
	}
	if cfg.Agent.SessionAppName == "" {
		cfg.Agent.SessionAppName = DefaultSessionAppName
	}

	if cfg.Assistants.AssistantID == "" {
		cfg.Assistants.AssistantID = DefaultAssistantID
	}

	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = DefaultModel
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = DefaultAPIKey
	}

	if cfg.Fanout.MaxWorkers == 0 {
		cfg.Fanout.MaxWorkers = DefaultMaxWorkers
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
