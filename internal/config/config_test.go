package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3*time.Second, cfg.Form.SuccessWindow)
	assert.Equal(t, 30*time.Minute, cfg.Form.SessionTTL)
	assert.Equal(t, 5000, cfg.Form.MaxFieldLength)
	assert.Equal(t, 10000, cfg.Form.MaxSessions)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "localhost:8080", cfg.Address())

	assert.Equal(t, cfg, Default())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "overrides",
			setup: func(v *viper.Viper) {
				v.Set("server.port", 3000)
				v.Set("server.host", "0.0.0.0")
				v.Set("form.success_window", "1500ms")
				v.Set("logging.level", "DEBUG")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 1500*time.Millisecond, cfg.Form.SuccessWindow)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name: "comma separated origins",
			setup: func(v *viper.Viper) {
				v.Set("server.allowed_origins", []string{"http://a.test, https://b.test"})
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"http://a.test", "https://b.test"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name:        "undecodable port",
			setup:       func(v *viper.Viper) { v.Set("server.port", "invalid_port") },
			expectError: true,
		},
		{
			name:        "port out of range",
			setup:       func(v *viper.Viper) { v.Set("server.port", 70000) },
			expectError: true,
		},
		{
			name:        "dangerous host",
			setup:       func(v *viper.Viper) { v.Set("server.host", "localhost;rm") },
			expectError: true,
		},
		{
			name:        "zero success window",
			setup:       func(v *viper.Viper) { v.Set("form.success_window", "0s") },
			expectError: true,
		},
		{
			name:        "bad origin",
			setup:       func(v *viper.Viper) { v.Set("server.allowed_origins", []string{"ftp://x"}) },
			expectError: true,
		},
		{
			name:        "bad log format",
			setup:       func(v *viper.Viper) { v.Set("logging.format", "xml") },
			expectError: true,
		},
		{
			name:        "no sessions allowed",
			setup:       func(v *viper.Viper) { v.Set("form.max_sessions", 0) },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				assert.True(t, formerrors.IsConfigError(err))
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".contactform.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nform:\n  success_window: 5s\n"), 0600))

	t.Setenv("CONTACTFORM_FORM_MAX_FIELD_LENGTH", "42")

	v := viper.New()
	v.SetConfigFile(path)
	BindEnv(v)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Form.SuccessWindow)
	assert.Equal(t, 42, cfg.Form.MaxFieldLength)
}

func TestToYAML(t *testing.T) {
	cfg := Default()
	cfg.Server.AllowedOrigins = []string{"https://example.com"}

	out, err := cfg.ToYAML()
	require.NoError(t, err)

	var parsed map[string]map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Equal(t, "3s", parsed["form"]["success_window"])
	assert.Equal(t, "30m0s", parsed["form"]["session_ttl"])
	assert.Equal(t, 8080, parsed["server"]["port"])
	assert.Equal(t, "info", parsed["logging"]["level"])
}
