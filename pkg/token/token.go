// Package token defines the lexical tokens of the supported SQL SELECT subset.
package token

import "fmt"

// Type represents the type of a lexical token.
type Type int32

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	NUMBER // 123, 45.67
	STRING // 'hello'

	// Operators and punctuation
	STAR   // *
	EQ     // =
	NE     // != or <>
	LT     // <
	GT     // >
	LE     // <=
	GE     // >=
	DOT    // .
	COMMA  // ,
	LPAREN // (
	RPAREN // )

	// Keywords (alphabetical)
	AND
	AS
	ASC
	BY
	DESC
	DISTINCT
	FROM
	IS
	LIKE
	NOT
	NULL
	ORDER
	SELECT
	TOP
	WHERE
)

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[Type]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	STAR:   "*",
	EQ:     "=",
	NE:     "<>",
	LT:     "<",
	GT:     ">",
	LE:     "<=",
	GE:     ">=",
	DOT:    ".",
	COMMA:  ",",
	LPAREN: "(",
	RPAREN: ")",

	AND:      "AND",
	AS:       "AS",
	ASC:      "ASC",
	BY:       "BY",
	DESC:     "DESC",
	DISTINCT: "DISTINCT",
	FROM:     "FROM",
	IS:       "IS",
	LIKE:     "LIKE",
	NOT:      "NOT",
	NULL:     "NULL",
	ORDER:    "ORDER",
	SELECT:   "SELECT",
	TOP:      "TOP",
	WHERE:    "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]Type{
	"and":      AND,
	"as":       AS,
	"asc":      ASC,
	"by":       BY,
	"desc":     DESC,
	"distinct": DISTINCT,
	"from":     FROM,
	"is":       IS,
	"like":     LIKE,
	"not":      NOT,
	"null":     NULL,
	"order":    ORDER,
	"select":   SELECT,
	"top":      TOP,
	"where":    WHERE,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t Type) bool {
	return t >= AND && t <= WHERE
}

// Token represents a lexical token with position information.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}
