// Package preview implements the live two-way preview engine: each edit
// on either side of the SQL/FetchXML pair is re-transpiled into the
// other side. All operations are synchronous and pure, so they can run
// on every keystroke; the metadata snapshot for virtual column
// detection is supplied up front by the caller.
package preview

import (
	"errors"

	"github.com/querylink/fetchsql/pkg/fetchxml"
	"github.com/querylink/fetchsql/pkg/parser"
	"github.com/querylink/fetchsql/pkg/schema"
)

// Side identifies which editor produced an update.
type Side int

// Sides of the preview pair.
const (
	SideSQL Side = iota
	SideFetchXML
)

// Diagnostic is a position-tagged problem suitable for inline display.
// Line and Column are 1-based; 0 means unknown.
type Diagnostic struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Result is the state of the pair after one edit. When the edited side
// fails to parse or validate, Valid is false, Diagnostics explains why,
// and the counterpart text is left at its last good value.
type Result struct {
	Side           Side
	Valid          bool
	SQL            string
	FetchXML       string
	EntityName     string
	Aliases        map[string]string
	Transformation schema.VirtualColumnTransformation
	Warnings       []fetchxml.Warning
	Diagnostics    []Diagnostic
}

// Session tracks the last good state of both sides. It is not safe for
// concurrent use; each caller owns its session.
type Session struct {
	attrs    []schema.AttributeDescriptor
	sql      string
	fetchXML string
}

// NewSession creates a session. attrs is the pre-fetched attribute
// metadata snapshot for virtual column detection; nil disables the
// rewrite.
func NewSession(attrs []schema.AttributeDescriptor) *Session {
	return &Session{attrs: attrs}
}

// SQL returns the last good SQL text.
func (s *Session) SQL() string { return s.sql }

// FetchXML returns the last good FetchXML text.
func (s *Session) FetchXML() string { return s.fetchXML }

// UpdateSQL re-transpiles an edited SQL text into FetchXML.
func (s *Session) UpdateSQL(text string) Result {
	res := Result{Side: SideSQL, SQL: text, FetchXML: s.fetchXML}

	stmt, err := parser.Parse(text)
	if err != nil {
		res.Diagnostics = []Diagnostic{sqlDiagnostic(err)}
		return res
	}

	if !stmt.Wildcard() && len(s.attrs) > 0 {
		res.Transformation = schema.DetectVirtualColumns(stmt.ColumnNames(), s.attrs)
		stmt = schema.RewriteStatement(stmt, res.Transformation)
	}

	gen, err := fetchxml.Generate(stmt)
	if err != nil {
		// Unreachable for parser-produced statements; surfaced as a
		// diagnostic rather than a panic so the UI stays alive.
		res.Diagnostics = []Diagnostic{{Message: err.Error()}}
		return res
	}

	res.Valid = true
	res.FetchXML = gen.XML
	res.EntityName = gen.EntityName
	res.Aliases = gen.Aliases
	s.sql = text
	s.fetchXML = gen.XML
	return res
}

// UpdateFetchXML re-transpiles an edited FetchXML text into SQL.
func (s *Session) UpdateFetchXML(text string) Result {
	res := Result{Side: SideFetchXML, SQL: s.sql, FetchXML: text}

	conv := fetchxml.ToSQL(text)
	if !conv.Success {
		for _, e := range conv.Errors {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Message: e.Message, Line: e.Line})
		}
		return res
	}

	res.Valid = true
	res.SQL = conv.SQL
	res.EntityName = conv.EntityName
	res.Warnings = conv.Warnings
	s.sql = conv.SQL
	s.fetchXML = text
	return res
}

// sqlDiagnostic converts a parse or lex error into a Diagnostic with a
// context snippet.
func sqlDiagnostic(err error) Diagnostic {
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return Diagnostic{
			Message: parseErr.Message,
			Line:    parseErr.Pos.Line,
			Column:  parseErr.Pos.Column,
			Snippet: parseErr.Snippet(parser.DefaultSnippetWidth),
		}
	}
	var lexErr *parser.LexError
	if errors.As(err, &lexErr) {
		return Diagnostic{
			Message: lexErr.Message,
			Line:    lexErr.Pos.Line,
			Column:  lexErr.Pos.Column,
			Snippet: lexErr.Snippet(parser.DefaultSnippetWidth),
		}
	}
	return Diagnostic{Message: err.Error()}
}
