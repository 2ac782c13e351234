package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joaovieira77/contactForm/internal/contact"
	"github.com/joaovieira77/contactForm/internal/view"
	"github.com/spf13/cobra"
)

// ErrInvalidSubmission makes validate exit non-zero when any field fails.
var ErrInvalidSubmission = errors.New("submission is invalid")

var (
	validateValues contact.Values
	validateOutput *OutputFlags
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"v"},
	Short:   "Validate contact form values",
	Long: `Run the contact form validator on the given values and report every
failing field. Exits with a non-zero status when the values would be rejected.

Examples:
  contactform validate --full-name "Jane Doe" --email jane@example.com \
    --subject Hello --message "Hi there"
  contactform validate --email not-an-email -o json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateValues.FullName, "full-name", "", "Full name")
	validateCmd.Flags().StringVar(&validateValues.Email, "email", "", "Email address")
	validateCmd.Flags().StringVar(&validateValues.Subject, "subject", "", "Subject")
	validateCmd.Flags().StringVar(&validateValues.Message, "message", "", "Message")
	validateOutput = AddOutputFlags(validateCmd)
}

// ValidationReport is the machine readable validate output.
type ValidationReport struct {
	Valid  bool           `json:"valid" yaml:"valid"`
	Values contact.Values `json:"values" yaml:"values"`
	Errors []FieldReport  `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// FieldReport describes one failing field.
type FieldReport struct {
	Field   string `json:"field" yaml:"field"`
	Label   string `json:"label" yaml:"label"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// BuildReport validates v.
func BuildReport(v contact.Values) ValidationReport {
	report := ValidationReport{Valid: true, Values: v}
	for _, fe := range contact.ValidateDetailed(v) {
		report.Valid = false
		report.Errors = append(report.Errors, FieldReport{
			Field:   fe.Field,
			Label:   view.DisplayName(contact.Field(fe.Field)),
			Kind:    string(fe.Kind),
			Message: fe.Message,
		})
	}
	return report
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := validateOutput.Validate(); err != nil {
		return err
	}

	report := BuildReport(validateValues)
	if err := validateOutput.Write(cmd.OutOrStdout(), report, func(w io.Writer) error {
		return writeReportTable(w, report)
	}); err != nil {
		return err
	}

	if !report.Valid {
		return ErrInvalidSubmission
	}
	return nil
}

func writeReportTable(out io.Writer, report ValidationReport) error {
	if report.Valid {
		_, err := fmt.Fprintln(out, "All fields are valid.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tKIND\tMESSAGE")
	for _, fe := range report.Errors {
		fmt.Fprintf(w, "%s\t%s\t%s\n", fe.Label, fe.Kind, fe.Message)
	}
	return w.Flush()
}
