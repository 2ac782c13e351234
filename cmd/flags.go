package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// OutputFlags holds the shared output options.
type OutputFlags struct {
	Format string `flag:"output,o" desc:"Output format (table|json|yaml)" default:"table"`
	Quiet  bool   `flag:"quiet,q" desc:"Suppress output" default:"false"`
}

// AddOutputFlags registers --output and --quiet on cmd.
func AddOutputFlags(cmd *cobra.Command) *OutputFlags {
	flags := &OutputFlags{}
	cmd.Flags().StringVarP(&flags.Format, "output", "o", FormatTable, "Output format (table|json|yaml)")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress output")
	return flags
}

// Validate checks the chosen format.
func (f *OutputFlags) Validate() error {
	switch strings.ToLower(f.Format) {
	case FormatTable, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format %q (supported: table, json, yaml)", f.Format)
	}
}

// Write renders v in the chosen format. table is used for the table format.
func (f *OutputFlags) Write(w io.Writer, v interface{}, table func(io.Writer) error) error {
	if f.Quiet {
		return nil
	}

	switch strings.ToLower(f.Format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return table(w)
	}
}

// ValidatePortFlag rejects out of range ports before viper sees them.
func ValidatePortFlag(flagSet *pflag.FlagSet, name string) error {
	if !flagSet.Changed(name) {
		return nil
	}
	port, err := flagSet.GetInt(name)
	if err != nil {
		return err
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid --%s %d: must be between 1 and 65535", name, port)
	}
	return nil
}
