package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Output string // counterpart file to write; stdout when empty
}

// NewWatchCommand creates the watch command, which re-transpiles a file
// whenever it changes.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-transpile a query file on every change",
		Long: `Watch a SQL or FetchXML file and re-transpile it on every write.
The direction follows the file extension: .xml files convert to SQL,
everything else converts to FetchXML. Results go to stdout or, with
--output, to a counterpart file.`,
		Example: `  fetchsql watch query.sql --output query.xml
  fetchsql watch query.xml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the transpiled counterpart to this file")
	return cmd
}

func runWatch(cmd *cobra.Command, path string, opts *WatchOptions) error {
	cmdCtx := NewCommandContext(cmd)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files on save
	// and the watch would be lost with the old inode.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	transpileOnce(cmd, path, opts)

	// Editors fire several events per save; coalesce them.
	var pending *time.Timer
	debounced := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case debounced <- struct{}{}:
				default:
				}
			})

		case <-debounced:
			transpileOnce(cmd, path, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watch error", "error", err)
		}
	}
}

// transpileOnce converts the file once and reports the outcome without
// stopping the watch loop.
func transpileOnce(cmd *cobra.Command, path string, opts *WatchOptions) {
	errOut := cmd.ErrOrStderr()

	data, err := os.ReadFile(path)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return
	}

	var output string
	if strings.EqualFold(filepath.Ext(path), ".xml") {
		result := fetchxml.ToSQL(string(data))
		if !result.Success {
			printValidationErrors(cmd, result.Errors)
			return
		}
		for _, w := range result.Warnings {
			_, _ = fmt.Fprintf(errOut, "warning (%s): %s\n", w.Feature, w.Message)
		}
		output = result.SQL + "\n"
	} else {
		stmt, err := parser.Parse(string(data))
		if err != nil {
			_ = reportSQLError(cmd, err)
			return
		}
		result, err := fetchxml.Generate(stmt)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			return
		}
		output = result.XML
	}

	if opts.Output == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), output)
		return
	}
	if err := os.WriteFile(opts.Output, []byte(output), 0o644); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprintf(errOut, "wrote %s (%s)\n", opts.Output, time.Now().Format("15:04:05"))
}
