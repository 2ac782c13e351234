// Package config provides configuration management for the contact form
// service using Viper for flexible configuration loading from files,
// environment variables, and command-line flags.
//
// Precedence, highest first: flags bound by the cmd package, CONTACTFORM_*
// environment variables, .contactform.yml, built-in defaults. The form
// section controls the success window and session limits, the server section
// the listener and websocket origins, the logging section the log handler.
package config

import (
	"fmt"
	"strings"
	"time"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "CONTACTFORM"

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = ".contactform"

type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Form    FormConfig    `mapstructure:"form" yaml:"form"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	Host            string        `mapstructure:"host" yaml:"host"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	Environment     string        `mapstructure:"environment" yaml:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type FormConfig struct {
	SuccessWindow  time.Duration `mapstructure:"success_window" yaml:"success_window"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	MaxFieldLength int           `mapstructure:"max_field_length" yaml:"max_field_length"`
	MaxSessions    int           `mapstructure:"max_sessions" yaml:"max_sessions"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

// BindEnv enables CONTACTFORM_<SECTION>_<OPTION> overrides on v,
// e.g. CONTACTFORM_FORM_SUCCESS_WINDOW=5s.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("form.success_window", 3*time.Second)
	v.SetDefault("form.session_ttl", 30*time.Minute)
	v.SetDefault("form.max_field_length", 5000)
	v.SetDefault("form.max_sessions", 10000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFrom(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, formerrors.WrapConfig(err, formerrors.ErrCodeConfigLoad, "failed to decode configuration")
	}

	// Handle allowed_origins set as a comma separated env var (viper slice workaround)
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins[0])
	}

	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// displayConfig mirrors Config with durations rendered as strings.
type displayConfig struct {
	Server struct {
		Port            int      `yaml:"port"`
		Host            string   `yaml:"host"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		Environment     string   `yaml:"environment"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Form struct {
		SuccessWindow  string `yaml:"success_window"`
		SessionTTL     string `yaml:"session_ttl"`
		MaxFieldLength int    `yaml:"max_field_length"`
		MaxSessions    int    `yaml:"max_sessions"`
	} `yaml:"form"`
	Logging LoggingConfig `yaml:"logging"`
}

// ToYAML renders the effective configuration in the config file format.
func (c *Config) ToYAML() ([]byte, error) {
	var d displayConfig
	d.Server.Port = c.Server.Port
	d.Server.Host = c.Server.Host
	d.Server.AllowedOrigins = c.Server.AllowedOrigins
	d.Server.Environment = c.Server.Environment
	d.Server.ShutdownTimeout = c.Server.ShutdownTimeout.String()
	d.Form.SuccessWindow = c.Form.SuccessWindow.String()
	d.Form.SessionTTL = c.Form.SessionTTL.String()
	d.Form.MaxFieldLength = c.Form.MaxFieldLength
	d.Form.MaxSessions = c.Form.MaxSessions
	d.Logging = c.Logging

	return yaml.Marshal(&d)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
