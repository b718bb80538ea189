package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
)

const (
	replPrompt         = "fetchsql> "
	replContinuePrompt = "     ...> "
)

// NewREPLCommand creates the repl command: an interactive transpiler
// shell.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive transpiler shell",
		Long: `Start an interactive shell. SQL statements terminated by a
semicolon are transpiled to FetchXML; paste FetchXML (ending in
</fetch>) to transpile back to SQL. Type .help for commands.`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	historyFile := ""
	if dir, err := os.UserCacheDir(); err == nil {
		historyFile = filepath.Join(dir, "fetchsql", "repl_history")
		_ = os.MkdirAll(filepath.Dir(historyFile), 0o755)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newReplCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "fetchsql interactive transpiler")
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buffer.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" && buffer.Len() == 0 {
			continue
		}

		if buffer.Len() == 0 && strings.HasPrefix(trimmed, ".") {
			if quit := handleReplDotCommand(cmd, trimmed); quit {
				break
			}
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")

		if !replInputComplete(buffer.String()) {
			rl.SetPrompt(replContinuePrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		input := buffer.String()
		buffer.Reset()
		replTranspile(cmd, input)
		_, _ = fmt.Fprintln(out)
	}

	return nil
}

// replInputComplete reports whether the buffered input forms a whole
// statement: SQL closed by a semicolon, or FetchXML closed by its
// fetch end tag.
func replInputComplete(input string) bool {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "<") {
		return strings.HasSuffix(trimmed, "</fetch>") || strings.HasSuffix(trimmed, "/>")
	}
	return strings.HasSuffix(trimmed, ";")
}

// replTranspile routes input to the matching direction by shape: XML
// goes to SQL, anything else is parsed as SQL.
func replTranspile(cmd *cobra.Command, input string) {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	trimmed := strings.TrimSpace(input)

	if strings.HasPrefix(trimmed, "<") {
		result := fetchxml.ToSQL(trimmed)
		if !result.Success {
			printValidationErrors(cmd, result.Errors)
			return
		}
		_, _ = fmt.Fprintln(out, result.SQL)
		for _, w := range result.Warnings {
			_, _ = fmt.Fprintf(errOut, "warning (%s): %s\n", w.Feature, w.Message)
		}
		return
	}

	sql := strings.TrimSuffix(trimmed, ";")
	stmt, err := parser.Parse(sql)
	if err != nil {
		_ = reportSQLError(cmd, err)
		return
	}
	result, err := fetchxml.Generate(stmt)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return
	}
	_, _ = fmt.Fprint(out, result.XML)
}

func handleReplDotCommand(cmd *cobra.Command, line string) (quit bool) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printReplHelp(cmd.OutOrStdout())
		return false

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return false

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", line)
		return false
	}
}

func printReplHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .clear          Clear the screen
  .quit / .exit   Exit the shell

Tips:
  - SQL statements must end with a semicolon (;)
  - Paste FetchXML (ending in </fetch>) to get SQL back
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newReplCompleter completes SQL keywords and dot-commands.
func newReplCompleter() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("SELECT"),
		readline.PcItem("FROM"),
		readline.PcItem("WHERE"),
		readline.PcItem("ORDER"),
		readline.PcItem("BY"),
		readline.PcItem("TOP"),
		readline.PcItem("DISTINCT"),
		readline.PcItem(".help"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}
	return readline.NewPrefixCompleter(items...)
}
