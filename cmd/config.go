package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect contactform configuration",
	Long: `Inspect the configuration after defaults, the config file, environment
variables and flags have been applied.

Examples:
  contactform config show              # Print the effective configuration
  contactform config validate          # Check the configuration and exit`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration as YAML",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := cfg.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	if used := configFileUsed(); used != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", used)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}
