package commands

import (
	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/internal/preview"
	"github.com/querylink/fetchsql/internal/tui"
	"github.com/querylink/fetchsql/pkg/parser"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	Entity       string
	MetadataFile string
}

// NewPreviewCommand creates the preview command: a terminal UI with a
// SQL pane and a FetchXML pane kept in sync on every keystroke.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Open the live two-way preview",
		Long: `Open a terminal UI with a SQL editor and its FetchXML counterpart.
Edits on either side re-transpile into the other as you type; parse
problems are shown inline without losing the last good counterpart.

Metadata for virtual column rewriting is fetched once at startup when
an entity can be determined, and kept fixed for the session.`,
		Example: `  fetchsql preview
  fetchsql preview query.sql --metadata-file account_metadata.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "Entity to load metadata for")
	cmd.Flags().StringVar(&opts.MetadataFile, "metadata-file", "", "JSON file with attribute metadata")
	return cmd
}

func runPreview(cmd *cobra.Command, args []string, opts *PreviewOptions) error {
	cmdCtx := NewCommandContext(cmd)

	initialSQL := ""
	if len(args) > 0 {
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		initialSQL = text
	}

	entity := opts.Entity
	if entity == "" && initialSQL != "" {
		if stmt, err := parser.Parse(initialSQL); err == nil {
			entity = stmt.Entity
		}
	}

	attrs, cleanup, err := cmdCtx.loadAttributes(cmd.Context(), opts.MetadataFile, entity)
	if err != nil {
		cmdCtx.Logger.Warn("metadata unavailable, virtual column rewriting disabled", "error", err)
		attrs = nil
		cleanup = func() {}
	}
	defer cleanup()

	return tui.Run(preview.NewSession(attrs), initialSQL)
}
