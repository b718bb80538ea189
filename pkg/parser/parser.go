// Package parser provides lexing and parsing for the SQL SELECT subset
// understood by the transpiler.
//
// # Grammar
//
//	statement    → SELECT [DISTINCT] [TOP number] select_list FROM entity
//	               [WHERE condition (AND condition)*]
//	               [ORDER BY order_key ("," order_key)*]
//	select_list  → "*" | select_item ("," select_item)*
//	select_item  → [table "."] column [AS alias]
//	             | func "(" (column | "*") ")" [AS alias]
//	condition    → attribute (comparison value | [NOT] LIKE string | IS [NOT] NULL)
//	comparison   → "=" | "<>" | "!=" | "<" | ">" | "<=" | ">="
//	order_key    → attribute [ASC|DESC]
//
// Parsing is fail-fast: the first structural violation aborts the parse
// and is reported as a position-tagged ParseError (or LexError for
// lexical defects). On success the parser returns an immutable
// SelectStatement.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/querylink/fetchsql/pkg/token"
)

// Parser parses SQL into a SelectStatement.
type Parser struct {
	lexer *Lexer
	input string
	token token.Token // current token
	peek  token.Token // lookahead token
}

// NewParser creates a parser for the given SQL input. It returns a
// LexError if the first two tokens cannot be read.
func NewParser(input string) (*Parser, error) {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to initialize current and peek.
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse parses the SQL input and returns the statement AST.
// Empty or whitespace-only input is a parse error, never a silent success.
func Parse(input string) (*SelectStatement, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &ParseError{Pos: token.At(input, 0), Message: errEmptyQuery, Input: input}
	}

	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}

	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}

	if p.token.Type != token.EOF {
		return nil, p.errorf("unexpected input after end of statement: %q", p.token.Literal)
	}
	return stmt, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() error {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return err
	}
	p.token = p.peek
	p.peek = tok
	return nil
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.Type) bool {
	return p.token.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.Type) (bool, error) {
	if p.check(t) {
		return true, p.nextToken()
	}
	return false, nil
}

// expect consumes the current token if it matches, otherwise fails with
// the given message.
func (p *Parser) expect(t token.Type, msg string) error {
	if p.check(t) {
		return p.nextToken()
	}
	return p.errorf("%s", msg)
}

// errorf builds a ParseError at the current token's position.
func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{
		Pos:     p.token.Pos,
		Message: fmt.Sprintf(format, args...),
		Input:   p.input,
	}
}

// ---------- Grammar ----------

// parseSelect parses a complete SELECT statement.
func (p *Parser) parseSelect() (*SelectStatement, error) {
	if err := p.expect(token.SELECT, "expected SELECT"); err != nil {
		return nil, err
	}

	stmt := &SelectStatement{}

	distinct, err := p.match(token.DISTINCT)
	if err != nil {
		return nil, err
	}
	stmt.Distinct = distinct

	if p.check(token.TOP) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		n, err := p.parseTopCount()
		if err != nil {
			return nil, err
		}
		stmt.Top = n
	}

	stmt.Columns, err = p.parseSelectList()
	if err != nil {
		return nil, err
	}

	if err := p.expect(token.FROM, "expected FROM after select list"); err != nil {
		return nil, err
	}
	if !p.check(token.IDENT) {
		return nil, p.errorf("expected entity name after FROM")
	}
	stmt.Entity = p.token.Literal
	if err := p.nextToken(); err != nil {
		return nil, err
	}

	if where, err := p.match(token.WHERE); err != nil {
		return nil, err
	} else if where {
		stmt.Where, err = p.parseConditions()
		if err != nil {
			return nil, err
		}
	}

	if order, err := p.match(token.ORDER); err != nil {
		return nil, err
	} else if order {
		if err := p.expect(token.BY, "expected BY after ORDER"); err != nil {
			return nil, err
		}
		stmt.OrderBy, err = p.parseOrderKeys()
		if err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

// parseTopCount parses the numeric argument of TOP. It must be a
// positive integer.
func (p *Parser) parseTopCount() (int, error) {
	if !p.check(token.NUMBER) {
		return 0, p.errorf("TOP requires a numeric row count")
	}
	n, err := strconv.Atoi(p.token.Literal)
	if err != nil || n <= 0 {
		return 0, p.errorf("TOP requires a positive integer, got %q", p.token.Literal)
	}
	if err := p.nextToken(); err != nil {
		return 0, err
	}
	return n, nil
}

// parseSelectList parses `*` or a comma-separated list of select items.
func (p *Parser) parseSelectList() ([]SelectColumn, error) {
	if p.check(token.STAR) {
		if err := p.nextToken(); err != nil {
			return nil, err
		}
		return []SelectColumn{&ColumnRef{Wildcard: true}}, nil
	}

	var columns []SelectColumn
	for {
		col, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)

		comma, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !comma {
			break
		}
	}
	return columns, nil
}

// parseSelectItem parses one select-list entry: a plain column reference
// or an aggregate function call, each with an optional AS alias.
func (p *Parser) parseSelectItem() (SelectColumn, error) {
	if !p.check(token.IDENT) {
		return nil, p.errorf("expected column name in select list")
	}
	name := p.token.Literal

	// Aggregate function call: func(column) or count(*).
	if p.peek.Type == token.LPAREN {
		return p.parseAggregate(name)
	}

	if err := p.nextToken(); err != nil {
		return nil, err
	}

	ref := &ColumnRef{Name: name}

	// Optional table prefix.
	if dot, err := p.match(token.DOT); err != nil {
		return nil, err
	} else if dot {
		if !p.check(token.IDENT) {
			return nil, p.errorf("expected column name after %q.", name)
		}
		ref.Table = name
		ref.Name = p.token.Literal
		if err := p.nextToken(); err != nil {
			return nil, err
		}
	}

	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	ref.Alias = alias
	return ref, nil
}

// parseAggregate parses `func(column)` with the function identifier
// already read into name.
func (p *Parser) parseAggregate(name string) (SelectColumn, error) {
	fn, ok := aggregateFuncs[strings.ToLower(name)]
	if !ok {
		return nil, p.errorf("unknown aggregate function %q", name)
	}
	if err := p.nextToken(); err != nil { // consume function name
		return nil, err
	}
	if err := p.expect(token.LPAREN, "expected ( after aggregate function"); err != nil {
		return nil, err
	}

	agg := &AggregateColumn{Func: fn}
	switch {
	case p.check(token.STAR):
		if fn != AggCount {
			return nil, p.errorf("%s(*) is not supported, only COUNT(*)", strings.ToUpper(string(fn)))
		}
		agg.Column = "*"
	case p.check(token.IDENT):
		agg.Column = p.token.Literal
	default:
		return nil, p.errorf("expected column name in %s()", strings.ToUpper(string(fn)))
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN, "expected ) after aggregate argument"); err != nil {
		return nil, err
	}

	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	agg.Alias = alias
	return agg, nil
}

// parseAlias parses an optional `AS alias` suffix.
func (p *Parser) parseAlias() (string, error) {
	as, err := p.match(token.AS)
	if err != nil {
		return "", err
	}
	if !as {
		return "", nil
	}
	if !p.check(token.IDENT) {
		return "", p.errorf("expected alias after AS")
	}
	alias := p.token.Literal
	return alias, p.nextToken()
}

// parseConditions parses the flat AND-chain of WHERE predicates.
func (p *Parser) parseConditions() ([]Condition, error) {
	var conds []Condition
	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)

		and, err := p.match(token.AND)
		if err != nil {
			return nil, err
		}
		if !and {
			return conds, nil
		}
	}
}

// parseCondition parses one `attribute op value` predicate.
func (p *Parser) parseCondition() (Condition, error) {
	var cond Condition

	if !p.check(token.IDENT) {
		return cond, p.errorf("expected attribute name in WHERE clause")
	}
	cond.Attribute = p.token.Literal
	if err := p.nextToken(); err != nil {
		return cond, err
	}

	switch p.token.Type {
	case token.EQ:
		cond.Operator = OpEq
	case token.NE:
		cond.Operator = OpNe
	case token.LT:
		cond.Operator = OpLt
	case token.GT:
		cond.Operator = OpGt
	case token.LE:
		cond.Operator = OpLe
	case token.GE:
		cond.Operator = OpGe
	case token.LIKE:
		cond.Operator = OpLike
	case token.NOT:
		if err := p.nextToken(); err != nil {
			return cond, err
		}
		if !p.check(token.LIKE) {
			return cond, p.errorf("expected LIKE after NOT")
		}
		cond.Operator = OpNotLike
	case token.IS:
		return p.parseNullCondition(cond)
	default:
		return cond, p.errorf("expected comparison operator after %q", cond.Attribute)
	}
	if err := p.nextToken(); err != nil {
		return cond, err
	}

	switch p.token.Type {
	case token.NUMBER, token.STRING:
		cond.Value = p.token.Literal
	default:
		return cond, p.errorf("expected literal value after %s", cond.Operator)
	}
	return cond, p.nextToken()
}

// parseNullCondition parses `IS [NOT] NULL` with IS as the current token.
func (p *Parser) parseNullCondition(cond Condition) (Condition, error) {
	if err := p.nextToken(); err != nil { // consume IS
		return cond, err
	}
	cond.Operator = OpNull
	if not, err := p.match(token.NOT); err != nil {
		return cond, err
	} else if not {
		cond.Operator = OpNotNull
	}
	if !p.check(token.NULL) {
		return cond, p.errorf("expected NULL after IS")
	}
	return cond, p.nextToken()
}

// parseOrderKeys parses the comma-separated ORDER BY key list.
func (p *Parser) parseOrderKeys() ([]OrderKey, error) {
	var keys []OrderKey
	for {
		if !p.check(token.IDENT) {
			return nil, p.errorf("expected attribute name in ORDER BY")
		}
		key := OrderKey{Attribute: p.token.Literal}
		if err := p.nextToken(); err != nil {
			return nil, err
		}

		switch p.token.Type {
		case token.ASC:
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		case token.DESC:
			key.Descending = true
			if err := p.nextToken(); err != nil {
				return nil, err
			}
		}
		keys = append(keys, key)

		comma, err := p.match(token.COMMA)
		if err != nil {
			return nil, err
		}
		if !comma {
			return keys, nil
		}
	}
}
