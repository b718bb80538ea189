package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/pkg/fetchxml"
)

// NewSQLCommand creates the sql command (FetchXML to SQL).
func NewSQLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql [file|-]",
		Short: "Transpile a FetchXML query back to SQL",
		Long: `Validate a FetchXML query and reconstruct the equivalent SQL
SELECT statement. Constructs outside the supported SQL subset (aggregate
mode, OR filters, link-entity joins) convert best-effort and are
reported as warnings on stderr.`,
		Example: `  fetchsql sql query.xml
  cat query.xml | fetchsql sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSQL,
	}
	return cmd
}

func runSQL(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	result := fetchxml.ToSQL(text)
	if !result.Success {
		printValidationErrors(cmd, result.Errors)
		return fmt.Errorf("invalid FetchXML")
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.SQL)
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning (%s): %s\n", w.Feature, w.Message)
	}
	return nil
}

// printValidationErrors writes validation errors to stderr, with line
// numbers where available.
func printValidationErrors(cmd *cobra.Command, errs []fetchxml.ValidationError) {
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), e.Message)
		}
	}
}
