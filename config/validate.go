package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lmproxy/proxy-contract-tests/logging"
)

const maxFanoutWorkers = 64

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, such as "proxy.base_url".
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the whole configuration and reports all problems at once.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateAgent(&cfg.Agent)...)

	if cfg.Assistants.AssistantID == "" {
		errs = append(errs, FieldError{Field: "assistants.assistant_id", Message: "assistant id is required"})
	}
	if cfg.OpenAI.Model == "" {
		errs = append(errs, FieldError{Field: "openai.model", Message: "model is required"})
	}
	if cfg.Fanout.MaxWorkers < 1 || cfg.Fanout.MaxWorkers > maxFanoutWorkers {
		errs = append(errs, FieldError{
			Field:   "fanout.max_workers",
			Message: fmt.Sprintf("must be between 1 and %d", maxFanoutWorkers),
		})
	}

	errs = append(errs, validateLogging(&cfg.Logging)...)

	for i, c := range cfg.Capabilities {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("capabilities[%d]", i), Message: "must not be empty"})
		}
	}
	for i, c := range cfg.WithoutCapabilities {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("without_capabilities[%d]", i), Message: "must not be empty"})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.base_url",
			Message: fmt.Sprintf("must be an absolute http or https URL, got %q", cfg.BaseURL),
		})
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, FieldError{Field: "proxy.request_timeout", Message: "request timeout must be positive"})
	}
	if cfg.StartupTimeout <= 0 {
		errs = append(errs, FieldError{Field: "proxy.startup_timeout", Message: "startup timeout must be positive"})
	}
	return errs
}

func validateAgent(cfg *AgentConfig) []FieldError {
	var errs []FieldError
	if cfg.AppName == "" {
		errs = append(errs, FieldError{Field: "agent.app_name", Message: "app name is required"})
	}
	if cfg.UserID == "" {
		errs = append(errs, FieldError{Field: "agent.user_id", Message: "user id is required"})
	}
	if strings.ContainsAny(cfg.AppName+cfg.UserID+cfg.SessionAppName, "/?#") {
		errs = append(errs, FieldError{Field: "agent", Message: "app names and user ids must not contain '/', '?' or '#'"})
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []FieldError {
	var errs []FieldError
	if _, err := logging.ParseLevel(cfg.Level); err != nil {
		errs = append(errs, FieldError{Field: "logging.level", Message: err.Error()})
	}
	switch logging.Format(strings.ToLower(cfg.Format)) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, FieldError{Field: "logging.format", Message: fmt.Sprintf("must be text or json, got %q", cfg.Format)})
	}
	return errs
}
