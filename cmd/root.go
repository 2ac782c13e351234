// Package cmd provides the contactform command-line interface.
//
// Configuration is resolved from, highest priority first:
//  1. Command-line flags (--port, --log-level, ...)
//  2. CONTACTFORM_<SECTION>_<OPTION> environment variables
//  3. The file named by --config or CONTACTFORM_CONFIG_FILE
//  4. .contactform.yml in the working directory
//  5. Built-in defaults
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joaovieira77/contactForm/internal/config"
	formerrors "github.com/joaovieira77/contactForm/internal/errors"
	"github.com/joaovieira77/contactForm/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "contactform",
	Short: "Serve and validate a contact form",
	Long: `contactform serves a four field contact form (full name, email, subject,
message) with inline validation and a transient success message.

Quick Start:
  contactform serve                          Start the form server
  contactform validate --email me@example.io Check values without a server
  contactform config show                    Print the effective configuration`,
	SilenceUsage: true,
}

// Exit codes returned by ExitCode.
const (
	ExitFailure = 1
	ExitConfig  = 2
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps a command error to the process exit status. Configuration
// problems get their own code so scripts can tell them from a failed run.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case formerrors.IsConfigError(err):
		return ExitConfig
	default:
		return ExitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .contactform.yml, can also use CONTACTFORM_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig points viper at the config file and enables env overrides. A
// missing file is not an error; a malformed one is reported by the command
// that loads the configuration.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.DefaultConfigName)
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig reads the effective configuration from the global viper state.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = cfg.Logging.Format
	lc.Component = "contactform"
	return logging.NewLogger(lc), nil
}

// configFileUsed returns the absolute path of the loaded config file, or ""
// when running on defaults and environment only.
func configFileUsed() string {
	used := viper.ConfigFileUsed()
	if used == "" {
		return ""
	}
	if _, err := os.Stat(used); err != nil {
		return ""
	}
	abs, err := filepath.Abs(used)
	if err != nil {
		return used
	}
	return abs
}
