package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "PROXYTESTS_"

// LoadConfig loads configuration from a YAML file and applies defaults and validation. An
// empty path means no file: the defaults alone are used.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides is LoadConfig followed by PROXYTESTS_* environment overrides,
// which take precedence over the file.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []FieldError
	str := func(name string, target *string) {
		if val, ok := lookup(envPrefix + name); ok && val != "" {
			*target = val
		}
	}
	duration := func(name string, target *time.Duration) {
		if val, ok := lookup(envPrefix + name); ok && val != "" {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, FieldError{Field: envPrefix + name, Message: "not a valid duration: " + val})
				return
			}
			*target = d
		}
	}

	str("BASE_URL", &cfg.Proxy.BaseURL)
	duration("REQUEST_TIMEOUT", &cfg.Proxy.RequestTimeout)
	duration("STARTUP_TIMEOUT", &cfg.Proxy.StartupTimeout)
	str("APP_NAME", &cfg.Agent.AppName)
	str("USER_ID", &cfg.Agent.UserID)
	str("ASSISTANT_ID", &cfg.Assistants.AssistantID)
	str("MODEL", &cfg.OpenAI.Model)
	str("API_KEY", &cfg.OpenAI.APIKey)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	if val, ok := lookup(envPrefix + "MAX_WORKERS"); ok && val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, FieldError{Field: envPrefix + "MAX_WORKERS", Message: "not an integer: " + val})
		} else {
			cfg.Fanout.MaxWorkers = n
		}
	}
	list := func(name string, target *[]string) {
		if val, ok := lookup(envPrefix + name); ok && val != "" {
			for _, c := range strings.Split(val, ",") {
				if c = strings.TrimSpace(c); c != "" {
					*target = append(*target, c)
				}
			}
		}
	}
	list("CAPABILITIES", &cfg.Capabilities)
	list("WITHOUT_CAPABILITIES", &cfg.WithoutCapabilities)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
