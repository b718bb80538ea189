package parser

import (
	"fmt"
	"strings"

	"github.com/querylink/fetchsql/pkg/token"
)

// DefaultSnippetWidth is the window width used by Snippet when callers
// have no layout constraints of their own.
const DefaultSnippetWidth = 40

// ParseError represents a structural parsing error with position
// information and the original input for context rendering.
type ParseError struct {
	Pos     token.Position
	Message string
	Input   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Snippet returns a fixed-width window of the original input around the
// error position with a caret marking the offending column, for inline
// display in editors and terminals.
func (e *ParseError) Snippet(width int) string {
	return snippet(e.Input, e.Pos.Offset, width)
}

// LexError represents a lexical analysis error (unterminated string or
// unrecognized character).
type LexError struct {
	Pos     token.Position
	Message string
	Input   string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Snippet returns a fixed-width context window around the error position.
func (e *LexError) Snippet(width int) string {
	return snippet(e.Input, e.Pos.Offset, width)
}

// snippet renders a window of input centered on offset with a caret line
// underneath. Newlines inside the window are flattened to spaces so the
// caret column stays aligned.
func snippet(input string, offset, width int) string {
	if width <= 0 {
		width = DefaultSnippetWidth
	}
	if offset < 0 {
		offset = 0
	}
	if offset > len(input) {
		offset = len(input)
	}

	start := offset - width/2
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(input) {
		end = len(input)
	}

	window := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, input[start:end])

	var b strings.Builder
	b.WriteString(window)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", offset-start))
	b.WriteByte('^')
	return b.String()
}

// Common error messages
const (
	errEmptyQuery         = "empty query"
	errUnterminatedString = "unterminated string literal"
	errUnexpectedChar     = "unrecognized character %q"
)
