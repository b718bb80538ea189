package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/internal/dataverse"
	"github.com/querylink/fetchsql/internal/metadata"
	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
	"github.com/querylink/fetchsql/pkg/schema"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	FetchXML     bool   // input is FetchXML instead of SQL
	Format       string // output format override
	MetadataFile string
}

// NewRunCommand creates the run command, which executes a query against
// the configured environment.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Execute a query against the configured environment",
		Long: `Transpile a SQL SELECT statement to FetchXML (or take FetchXML
directly with --fetchxml), execute it against the configured
environment, and render the result rows.

When virtual display columns were rewritten to their parents, the
result set is re-filtered to the originally selected columns.`,
		Example: `  fetchsql run query.sql
  fetchsql run query.xml --fetchxml --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.FetchXML, "fetchxml", false, "Treat the input as FetchXML")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, csv, json")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata-file", "", "JSON file with attribute metadata")
	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.RequireEnvironment(); err != nil {
		return err
	}

	input, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	var (
		query          string
		entityName     string
		aliases        map[string]string
		transformation schema.VirtualColumnTransformation
	)

	if opts.FetchXML {
		if v := fetchxml.Validate(input); !v.Valid {
			printValidationErrors(cmd, v.Errors)
			return fmt.Errorf("invalid FetchXML")
		}
		conv := fetchxml.ToSQL(input)
		query = input
		entityName = conv.EntityName
	} else {
		stmt, err := parser.Parse(input)
		if err != nil {
			return reportSQLError(cmd, err)
		}

		if !stmt.Wildcard() {
			attrs, cleanup, err := cmdCtx.loadAttributes(cmd.Context(), opts.MetadataFile, stmt.Entity)
			if err != nil {
				return err
			}
			defer cleanup()
			if len(attrs) > 0 {
				transformation = schema.DetectVirtualColumns(stmt.ColumnNames(), attrs)
				stmt = schema.RewriteStatement(stmt, transformation)
			}
		}

		gen, err := fetchxml.Generate(stmt)
		if err != nil {
			return err
		}
		query = gen.XML
		entityName = gen.EntityName
		aliases = gen.Aliases
	}

	tokens := dataverse.StaticToken(cmdCtx.Cfg.AccessToken)
	resolver, cleanup := newResolver(cmdCtx, tokens)
	defer cleanup()

	entitySet, err := resolver.EntitySetName(cmd.Context(), cmdCtx.Cfg.EnvironmentURL, entityName)
	if err != nil {
		cmdCtx.Logger.Warn("entity-set resolution failed, using naive pluralization", "error", err)
		entitySet = metadata.Pluralize(entityName)
	}

	client := dataverse.NewClient(cmdCtx.Cfg.EnvironmentURL, tokens, cmdCtx.Logger)
	rows, err := client.Execute(cmd.Context(), entitySet, query)
	if err != nil {
		return err
	}

	rows = dataverse.FilterColumns(rows, transformation.OriginalColumns, aliases)

	format := opts.Format
	if format == "" {
		format = cmdCtx.Cfg.Output
	}
	return renderResults(cmd.OutOrStdout(), rows, format)
}

// newResolver builds the entity-set resolver, backed by the on-disk
// cache when available.
func newResolver(cmdCtx *CommandContext, tokens dataverse.TokenSource) (metadata.EntitySetResolver, func()) {
	cleanup := func() {}
	var store *metadata.Store
	if cmdCtx.Cfg.CachePath != "" {
		if s, err := metadata.OpenStore(cmdCtx.Cfg.CachePath); err == nil {
			store = s
			cleanup = func() { _ = s.Close() }
		}
	}
	if strings.TrimSpace(cmdCtx.Cfg.AccessToken) == "" {
		return metadata.NaiveResolver{}, cleanup
	}
	return metadata.NewWebAPIResolver(tokens, store, cmdCtx.Logger), cleanup
}
