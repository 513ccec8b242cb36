// Package config holds the settings of a test run. Settings come from an optional YAML file,
// then PROXYTESTS_* environment variables, then command-line flags, and are validated last.
package config

import (
	"slices"
	"time"

	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

// Config is the complete configuration of a test run.
type Config struct {
	Proxy      ProxyConfig      `yaml:"proxy"`
	Agent      AgentConfig      `yaml:"agent"`
	Assistants AssistantsConfig `yaml:"assistants"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Fanout     FanoutConfig     `yaml:"fanout"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Capabilities are added to the ones detected by probing the proxy. Capabilities that
	// cannot be probed, such as "chat-completions", must be listed here to be tested.
	Capabilities []string `yaml:"capabilities"`

	// WithoutCapabilities are capabilities the proxy is known not to have. The agent-run and
	// Assistants surfaces are otherwise expected, and a proxy that does not answer their
	// probes fails discovery instead of having their tests skipped.
	WithoutCapabilities []string `yaml:"without_capabilities"`
}

// ExpectedCapabilities is every probed capability plus the declared ones, minus
// WithoutCapabilities.
func (c *Config) ExpectedCapabilities() []string {
	excluded := make(map[string]bool)
	for _, name := range c.WithoutCapabilities {
		excluded[name] = true
	}
	var ret []string
	for _, list := range [][]string{servicedef.ProbedCapabilities, c.Capabilities} {
		for _, name := range list {
			if !excluded[name] && !slices.Contains(ret, name) {
				ret = append(ret, name)
			}
		}
	}
	return ret
}

// ProxyConfig says where the proxy is and how long to wait for it.
type ProxyConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
}

// AgentConfig identifies the agent app and user for the agent-run API.
type AgentConfig struct {
	AppName string `yaml:"app_name"`
	UserID  string `yaml:"user_id"`

	// SessionAppName is the app used by the session CRUD tests.
	SessionAppName string `yaml:"session_app_name"`
}

type AssistantsConfig struct {
	AssistantID string `yaml:"assistant_id"`
}

// OpenAIConfig is used by the chat completions tests, which go through the OpenAI SDK.
type OpenAIConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

type FanoutConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
