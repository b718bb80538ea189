package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/pkg/fetchxml"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Validate a FetchXML query structurally",
		Long: `Check FetchXML text for structural defects: well-formedness,
exactly one entity element, and a non-empty entity name. Exits non-zero
when the query is invalid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			result := fetchxml.Validate(text)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
			} else {
				printValidationErrors(cmd, result.Errors)
			}

			if !result.Valid {
				return fmt.Errorf("invalid FetchXML")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the validation result as JSON")
	return cmd
}
