package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
	"github.com/querylink/fetchsql/pkg/schema"
)

// TranspileOptions holds options for the transpile command.
type TranspileOptions struct {
	Entity       string // override for the metadata entity (defaults to FROM)
	MetadataFile string // local JSON metadata instead of the Web API
	ShowAliases  bool   // print the out-of-band alias map
}

// NewTranspileCommand creates the transpile command (SQL to FetchXML).
func NewTranspileCommand() *cobra.Command {
	opts := &TranspileOptions{}
	cmd := &cobra.Command{
		Use:   "transpile [file|-]",
		Short: "Transpile a SQL SELECT statement to FetchXML",
		Long: `Parse a SQL SELECT statement and emit the equivalent FetchXML.

When entity metadata is available (from the configured environment or a
--metadata-file), virtual display columns are rewritten to their parent
attributes before generation.`,
		Example: `  # From a file
  fetchsql transpile query.sql

  # From stdin
  echo "SELECT name FROM account" | fetchsql transpile

  # With offline metadata for virtual column detection
  fetchsql transpile query.sql --metadata-file account_metadata.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranspile(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Entity, "entity", "", "Entity to load metadata for (default: the FROM entity)")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata-file", "", "JSON file with attribute metadata")
	cmd.Flags().BoolVar(&opts.ShowAliases, "aliases", false, "Print the column alias map after the query")
	return cmd
}

func runTranspile(cmd *cobra.Command, args []string, opts *TranspileOptions) error {
	cmdCtx := NewCommandContext(cmd)

	sql, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	stmt, err := parser.Parse(sql)
	if err != nil {
		return reportSQLError(cmd, err)
	}

	entity := opts.Entity
	if entity == "" {
		entity = stmt.Entity
	}

	var transformation schema.VirtualColumnTransformation
	if !stmt.Wildcard() {
		attrs, cleanup, err := cmdCtx.loadAttributes(cmd.Context(), opts.MetadataFile, entity)
		if err != nil {
			return err
		}
		defer cleanup()
		if len(attrs) > 0 {
			transformation = schema.DetectVirtualColumns(stmt.ColumnNames(), attrs)
			stmt = schema.RewriteStatement(stmt, transformation)
		}
	}

	result, err := fetchxml.Generate(stmt)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), result.XML)

	if transformation.NeedsTransformation {
		cmdCtx.Logger.Debug("virtual columns rewritten",
			"virtual", len(transformation.VirtualColumns),
			"parents_added", transformation.ParentsToAdd,
		)
	}
	if opts.ShowAliases && len(result.Aliases) > 0 {
		for column, alias := range result.Aliases {
			fmt.Fprintf(cmd.ErrOrStderr(), "alias: %s -> %s\n", column, alias)
		}
	}
	return nil
}

// reportSQLError prints a parse or lex error with its context snippet
// and returns a silent error so cobra sets a non-zero exit code without
// double-printing.
func reportSQLError(cmd *cobra.Command, err error) error {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, err.Error())

	var parseErr *parser.ParseError
	var lexErr *parser.LexError
	switch {
	case errors.As(err, &parseErr):
		fmt.Fprintln(out, parseErr.Snippet(parser.DefaultSnippetWidth))
	case errors.As(err, &lexErr):
		fmt.Fprintln(out, lexErr.Snippet(parser.DefaultSnippetWidth))
	}
	return fmt.Errorf("invalid SQL")
}
