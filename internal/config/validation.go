package config

import (
	"fmt"
	"net/url"
	"strings"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateFormConfig(&config.Form); err != nil {
		return fmt.Errorf("form config: %w", err)
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidPort,
			fmt.Sprintf("port %d is not in valid range 0-65535", config.Port))
	}

	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return formerrors.NewConfigError(formerrors.ErrCodeInvalidHost,
				fmt.Sprintf("host contains dangerous character: %s", char))
		}
	}

	for _, origin := range config.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return formerrors.NewConfigError(formerrors.ErrCodeInvalidHost,
				fmt.Sprintf("allowed origin %q must be an http(s) origin", origin))
		}
	}

	if config.ShutdownTimeout < 0 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidDuration, "shutdown_timeout must not be negative")
	}

	return nil
}

// validateFormConfig validates form lifecycle settings
func validateFormConfig(config *FormConfig) error {
	if config.SuccessWindow <= 0 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidDuration,
			fmt.Sprintf("success_window must be positive, got %s", config.SuccessWindow))
	}

	if config.SessionTTL <= 0 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidDuration,
			fmt.Sprintf("session_ttl must be positive, got %s", config.SessionTTL))
	}

	if config.MaxFieldLength < 0 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidLimit, "max_field_length must not be negative")
	}

	if config.MaxSessions < 1 {
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidLimit, "max_sessions must be at least 1")
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	switch config.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidLogLevel,
			fmt.Sprintf("unknown log level %q", config.Level))
	}

	switch config.Format {
	case "text", "json":
	default:
		return formerrors.NewConfigError(formerrors.ErrCodeInvalidLogLevel,
			fmt.Sprintf("unknown log format %q", config.Format))
	}

	return nil
}
